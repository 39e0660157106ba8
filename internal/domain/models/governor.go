package models

import "time"

// FrequencyState is the governor's persisted memory for one
// (symbol, signal_type) key. Updated only on emission.
type FrequencyState struct {
	Symbol           string     `json:"symbol"`
	SignalType       SignalType `json:"signal_type"`
	LastEmitTime     time.Time  `json:"last_emit_time"`
	LastEmittedScore float64    `json:"last_emitted_score"`
}

// Cooling reports whether the key is still inside its cooldown window at t.
func (s *FrequencyState) Cooling(t time.Time, cooldown time.Duration) bool {
	if s == nil || s.LastEmitTime.IsZero() {
		return false
	}
	return t.Sub(s.LastEmitTime) < cooldown
}

// StateKey builds the store key for a (symbol, signal_type) pair.
func StateKey(symbol string, st SignalType) string {
	return symbol + ":" + string(st)
}
