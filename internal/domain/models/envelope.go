package models

import "time"

// Decision states whether a classified signal may reach the notification
// channel.
type Decision string

const (
	DecisionEmit     Decision = "EMIT"
	DecisionSuppress Decision = "SUPPRESS"
)

// Suppression reasons carried on SUPPRESS envelopes.
const (
	ReasonCooldownActive      = "cooldown_active"
	ReasonBelowMinimumScore   = "below_minimum_score"
	ReasonNeutralSignal       = "neutral_signal"
	ReasonGovernorUnavailable = "governor_unavailable"
)

// AlertEnvelope packages the full analytical context with the governor's
// decision. An envelope is built for every evaluation; suppression never
// discards the payload.
type AlertEnvelope struct {
	Confluence        ConfluenceResult `json:"confluence_result"`
	Decision          Decision         `json:"decision"`
	SuppressionReason string           `json:"suppression_reason,omitempty"`
	EvaluatedAt       time.Time        `json:"evaluated_at"`
}

// NewAlertEnvelope builds an immutable envelope from a result and a
// governor decision. reason must be empty iff decision is EMIT.
func NewAlertEnvelope(res ConfluenceResult, decision Decision, reason string, at time.Time) AlertEnvelope {
	if decision == DecisionEmit {
		reason = ""
	}
	return AlertEnvelope{
		Confluence:        res,
		Decision:          decision,
		SuppressionReason: reason,
		EvaluatedAt:       at,
	}
}

// Suppressed reports whether the envelope carries a SUPPRESS decision.
func (e *AlertEnvelope) Suppressed() bool { return e.Decision == DecisionSuppress }
