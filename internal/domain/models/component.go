package models

import "time"

// RawComponent is one analytical dimension as delivered by an upstream
// score producer. Value may be NaN/Inf or far outside [0,100]; intake is
// responsible for filtering before aggregation.
type RawComponent struct {
	Value          float64                `json:"value"`
	Weight         float64                `json:"weight"`
	Interpretation string                 `json:"interpretation,omitempty"`
	Subcomponents  map[string]interface{} `json:"subcomponents,omitempty"`
}

// ScoreSnapshot is the per-symbol, per-cycle input to the evaluation
// pipeline: a mapping of component name to raw score.
type ScoreSnapshot struct {
	Symbol     string                  `json:"symbol"`
	Timestamp  time.Time               `json:"timestamp"`
	Components map[string]RawComponent `json:"components"`
}

// ComponentScore is a validated component ready for aggregation. Weight is
// the renormalized weight (valid components sum to 1).
type ComponentScore struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Weight         float64 `json:"weight"`
	Contribution   float64 `json:"contribution"` // weight * value
	Interpretation string  `json:"interpretation,omitempty"`
}
