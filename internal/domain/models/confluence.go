package models

import "time"

// SignalType is the directional classification of a composite score.
type SignalType string

const (
	SignalBuy     SignalType = "BUY"
	SignalSell    SignalType = "SELL"
	SignalNeutral SignalType = "NEUTRAL"
)

// ConfluenceResult is the fused output of one evaluation cycle.
// Created fresh per cycle and never mutated downstream.
type ConfluenceResult struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	CompositeScore float64 `json:"composite_score"` // [0,100]
	Consensus      float64 `json:"consensus"`       // [0,1]
	Confidence     float64 `json:"confidence"`      // [0,1]

	SignalType  SignalType `json:"signal_type"`
	Reliability float64    `json:"reliability"` // [0,1]

	// Interpretation of the composite from the bucket table; opaque text.
	Interpretation string `json:"interpretation,omitempty"`

	// Breakdown holds the validated inputs with their renormalized weights
	// and weighted contributions, sorted by name for stable output.
	Breakdown []ComponentScore `json:"component_breakdown"`

	// InvalidComponents lists names excluded by intake, for audit.
	InvalidComponents []string `json:"invalid_components,omitempty"`
}

// NeutralResult returns the canonical fail-soft result used when no valid
// components survive intake.
func NeutralResult(symbol string, ts time.Time) ConfluenceResult {
	return ConfluenceResult{
		Symbol:         symbol,
		Timestamp:      ts,
		CompositeScore: 50,
		Consensus:      0,
		Confidence:     0,
		SignalType:     SignalNeutral,
		Reliability:    0,
	}
}
