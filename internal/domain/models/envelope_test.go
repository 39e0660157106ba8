package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewAlertEnvelopeReasonPresence(t *testing.T) {
	res := ConfluenceResult{Symbol: "BTCUSDT", CompositeScore: 70, SignalType: SignalBuy}
	at := time.Unix(1700000000, 0)

	emit := NewAlertEnvelope(res, DecisionEmit, ReasonCooldownActive, at)
	if emit.SuppressionReason != "" {
		t.Fatalf("EMIT envelope carries reason %q", emit.SuppressionReason)
	}
	if emit.Suppressed() {
		t.Fatalf("EMIT envelope reports suppressed")
	}

	sup := NewAlertEnvelope(res, DecisionSuppress, ReasonCooldownActive, at)
	if sup.SuppressionReason != ReasonCooldownActive {
		t.Fatalf("SUPPRESS envelope lost reason: %q", sup.SuppressionReason)
	}
	if !sup.Suppressed() {
		t.Fatalf("SUPPRESS envelope not reported suppressed")
	}
}

// A suppressed envelope must stay fully inspectable: breakdown and
// interpretations survive packaging and serialization.
func TestSuppressedEnvelopeRetainsContext(t *testing.T) {
	res := ConfluenceResult{
		Symbol:         "BTCUSDT",
		Timestamp:      time.Unix(1700000000, 0),
		CompositeScore: 55,
		Consensus:      0.8,
		Confidence:     0.08,
		SignalType:     SignalNeutral,
		Interpretation: "mild bullish lean, mixed component readings",
		Breakdown: []ComponentScore{
			{Name: "orderflow", Value: 73.08, Weight: 0.5, Contribution: 36.54, Interpretation: "aggressive buying"},
			{Name: "technical", Value: 44.74, Weight: 0.5, Contribution: 22.37},
		},
		InvalidComponents: []string{"sentiment"},
	}

	env := NewAlertEnvelope(res, DecisionSuppress, ReasonNeutralSignal, time.Unix(1700000001, 0))

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded AlertEnvelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded.Confluence.Breakdown) != 2 {
		t.Fatalf("breakdown lost: %+v", decoded.Confluence.Breakdown)
	}
	if decoded.Confluence.Breakdown[0].Interpretation == "" {
		t.Fatalf("component interpretation lost")
	}
	if decoded.Confluence.Interpretation == "" {
		t.Fatalf("result interpretation lost")
	}
	if len(decoded.Confluence.InvalidComponents) != 1 {
		t.Fatalf("invalid component audit trail lost")
	}
}
