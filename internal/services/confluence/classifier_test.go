package confluence

import (
	"math"
	"testing"

	"Conflux/internal/domain/models"
)

func TestClassifyThresholds(t *testing.T) {
	cfg := baseConfluenceConfig() // buy 60, sell 40
	cls := NewClassifier(cfg)

	tests := []struct {
		composite float64
		want      models.SignalType
	}{
		{100, models.SignalBuy},
		{60, models.SignalBuy}, // inclusive
		{59.999, models.SignalNeutral},
		{50, models.SignalNeutral},
		{40.001, models.SignalNeutral},
		{40, models.SignalSell}, // inclusive
		{0, models.SignalSell},
	}

	for _, tt := range tests {
		res := models.ConfluenceResult{CompositeScore: tt.composite, Confidence: 0.42}
		cls.Classify(&res)
		if res.SignalType != tt.want {
			t.Fatalf("composite %v: got %s, want %s", tt.composite, res.SignalType, tt.want)
		}
		if res.Reliability != res.Confidence {
			t.Fatalf("reliability %v != confidence %v", res.Reliability, res.Confidence)
		}
		if res.Interpretation == "" {
			t.Fatalf("composite %v: interpretation not set", tt.composite)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	cls := NewClassifier(baseConfluenceConfig())
	res := models.ConfluenceResult{CompositeScore: 72.4, Confidence: 0.61}
	cls.Classify(&res)
	first, firstRel := res.SignalType, res.Reliability
	cls.Classify(&res)
	if res.SignalType != first || res.Reliability != firstRel {
		t.Fatalf("classification not idempotent: %s/%v then %s/%v", first, firstRel, res.SignalType, res.Reliability)
	}
}

func TestInterpretCoversFullRange(t *testing.T) {
	for score := 0.0; score <= 100; score += 0.5 {
		if Interpret(score) == "" {
			t.Fatalf("no interpretation for composite %v", score)
		}
	}
	if Interpret(100) != Interpret(99.9) {
		t.Fatalf("upper edge falls outside the last bucket")
	}
}

// Full pipeline over the six-component sample: intake, aggregation and
// classification with nominal thresholds land in the neutral band.
func TestEndToEndSixComponentSample(t *testing.T) {
	in := NewIntake(nil, newTestLogger(t), nil)
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)
	cls := NewClassifier(baseConfluenceConfig())

	valid, invalid := in.Validate(snapshot(map[string]models.RawComponent{
		"technical":       {Value: 44.74, Weight: 1},
		"volume":          {Value: 43.15, Weight: 1},
		"orderbook":       {Value: 60.08, Weight: 1},
		"orderflow":       {Value: 73.08, Weight: 1},
		"sentiment":       {Value: 62.10, Weight: 1},
		"price_structure": {Value: 46.82, Weight: 1},
	}))
	if len(invalid) != 0 {
		t.Fatalf("unexpected exclusions: %v", invalid)
	}

	res := agg.Aggregate("BTCUSDT", testTime, valid, invalid)
	cls.Classify(&res)

	if res.CompositeScore < 50 || res.CompositeScore > 60 {
		t.Fatalf("composite = %v, want mild bullish band", res.CompositeScore)
	}
	if res.SignalType != models.SignalNeutral {
		t.Fatalf("signal = %s, want NEUTRAL with 60/40 thresholds", res.SignalType)
	}
	if len(res.Breakdown) != 6 {
		t.Fatalf("breakdown lost components: %d", len(res.Breakdown))
	}
}

// One NaN among six components still yields a valid composite over the
// renormalized remainder.
func TestEndToEndWithMissingSentiment(t *testing.T) {
	in := NewIntake(nil, newTestLogger(t), nil)
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	valid, invalid := in.Validate(snapshot(map[string]models.RawComponent{
		"technical":       {Value: 44.74, Weight: 1},
		"volume":          {Value: 43.15, Weight: 1},
		"orderbook":       {Value: 60.08, Weight: 1},
		"orderflow":       {Value: 73.08, Weight: 1},
		"sentiment":       {Value: math.NaN(), Weight: 1},
		"price_structure": {Value: 46.82, Weight: 1},
	}))
	if len(invalid) != 1 || invalid[0] != "sentiment" {
		t.Fatalf("expected sentiment excluded, got %v", invalid)
	}

	res := agg.Aggregate("BTCUSDT", testTime, valid, invalid)
	if math.IsNaN(res.CompositeScore) || res.CompositeScore < 0 || res.CompositeScore > 100 {
		t.Fatalf("composite invalid: %v", res.CompositeScore)
	}
	if len(res.Breakdown) != 5 {
		t.Fatalf("expected 5 surviving components, got %d", len(res.Breakdown))
	}
	if res.InvalidComponents[0] != "sentiment" {
		t.Fatalf("invalid component names not retained: %v", res.InvalidComponents)
	}
}
