package confluence

import (
	"math"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/pkg/config"
)

func baseConfluenceConfig() config.ConfluenceConfig {
	return config.ConfluenceConfig{
		Weights:       map[string]float64{},
		BuyThreshold:  60,
		SellThreshold: 40,
		// Factor 0 disables both adjustment sides unless a test opts in.
		Amplification: config.AdjustmentConfig{ConfidenceThreshold: 1, ConsensusThreshold: 1, Factor: 0, Mode: config.ModeMultiplicative},
		Dampening:     config.AdjustmentConfig{ConfidenceThreshold: 0, ConsensusThreshold: 0, Factor: 0, Mode: config.ModeMultiplicative},
	}
}

func equalComponents(values map[string]float64) []models.ComponentScore {
	comps := make([]models.ComponentScore, 0, len(values))
	w := 1.0 / float64(len(values))
	for name, v := range values {
		comps = append(comps, models.ComponentScore{Name: name, Value: v, Weight: w, Contribution: w * v})
	}
	return comps
}

var testTime = time.Unix(1700000000, 0)

func TestAggregateWeightedMean(t *testing.T) {
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	comps := []models.ComponentScore{
		{Name: "technical", Value: 80, Weight: 0.75},
		{Name: "volume", Value: 40, Weight: 0.25},
	}
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	if math.Abs(res.CompositeScore-70) > 1e-9 {
		t.Fatalf("composite = %v, want 70", res.CompositeScore)
	}
	if res.Symbol != "BTCUSDT" || !res.Timestamp.Equal(testTime) {
		t.Fatalf("identity fields not carried: %+v", res)
	}
}

// Variance must use the same weight vector as the mean. With weights
// (0.75, 0.25) over values (80, 40) the mean is 70; the weighted variance
// is 0.75*100 + 0.25*900 = 300, while the unweighted variance against that
// mean would be 500. The consensus figure distinguishes the two.
func TestAggregateVarianceUsesMeanWeights(t *testing.T) {
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	comps := []models.ComponentScore{
		{Name: "technical", Value: 80, Weight: 0.75},
		{Name: "volume", Value: 40, Weight: 0.25},
	}
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	wantConsensus := 1 - 300.0/2500.0
	if math.Abs(res.Consensus-wantConsensus) > 1e-9 {
		t.Fatalf("consensus = %v, want %v (weighted variance 300)", res.Consensus, wantConsensus)
	}
}

func TestAggregateConfidence(t *testing.T) {
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	comps := equalComponents(map[string]float64{"a": 70, "b": 70})
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	// No dispersion: consensus 1; distance = 20/50.
	if math.Abs(res.Consensus-1) > 1e-9 {
		t.Fatalf("consensus = %v, want 1", res.Consensus)
	}
	if math.Abs(res.Confidence-0.4) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.4", res.Confidence)
	}
}

func TestAggregateEmptySetNeutralDefault(t *testing.T) {
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	res := agg.Aggregate("BTCUSDT", testTime, nil, []string{"sentiment", "technical"})

	if res.CompositeScore != 50 || res.Consensus != 0 || res.Confidence != 0 {
		t.Fatalf("expected neutral default, got %+v", res)
	}
	if res.SignalType != models.SignalNeutral {
		t.Fatalf("expected NEUTRAL, got %s", res.SignalType)
	}
	if len(res.InvalidComponents) != 2 {
		t.Fatalf("invalid components not carried: %v", res.InvalidComponents)
	}
}

func TestAggregateRangesUnderAdversarialInputs(t *testing.T) {
	agg := NewAggregator(baseConfluenceConfig(), newTestLogger(t), nil)

	// Extreme spread inside the sanity window can push raw variance past
	// the normalizer; outputs must still land in range.
	comps := []models.ComponentScore{
		{Name: "a", Value: -10, Weight: 0.5},
		{Name: "b", Value: 110, Weight: 0.5},
	}
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	if res.CompositeScore < 0 || res.CompositeScore > 100 {
		t.Fatalf("composite out of range: %v", res.CompositeScore)
	}
	if res.Consensus < 0 || res.Consensus > 1 {
		t.Fatalf("consensus out of range: %v", res.Consensus)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", res.Confidence)
	}
}

func TestAmplificationNeverMovesTowardNeutral(t *testing.T) {
	cfg := baseConfluenceConfig()
	cfg.Amplification = config.AdjustmentConfig{ConfidenceThreshold: 0.3, ConsensusThreshold: 0.5, Factor: 1.25, Mode: config.ModeMultiplicative}
	agg := NewAggregator(cfg, newTestLogger(t), nil)

	for _, values := range []map[string]float64{
		{"a": 75, "b": 73}, // bullish side
		{"a": 25, "b": 27}, // bearish side
	} {
		comps := equalComponents(values)
		var before float64
		for _, c := range comps {
			before += c.Contribution
		}
		res := agg.Aggregate("BTCUSDT", testTime, comps, nil)
		if math.Abs(res.CompositeScore-50) < math.Abs(before-50) {
			t.Fatalf("amplification moved %v toward neutral: %v", before, res.CompositeScore)
		}
		if res.CompositeScore < 0 || res.CompositeScore > 100 {
			t.Fatalf("amplified composite out of range: %v", res.CompositeScore)
		}
	}
}

func TestDampeningPullsTowardNeutral(t *testing.T) {
	cfg := baseConfluenceConfig()
	cfg.Dampening = config.AdjustmentConfig{ConfidenceThreshold: 0.9, ConsensusThreshold: 0.9, Factor: 0.5, Mode: config.ModeMultiplicative}
	agg := NewAggregator(cfg, newTestLogger(t), nil)

	comps := equalComponents(map[string]float64{"a": 70, "b": 30, "c": 65})
	var before float64
	for _, c := range comps {
		before += c.Contribution
	}
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	if math.Abs(res.CompositeScore-50) > math.Abs(before-50) {
		t.Fatalf("dampening moved %v away from neutral: %v", before, res.CompositeScore)
	}
}

func TestAdditiveDampeningNeverCrossesNeutral(t *testing.T) {
	cfg := baseConfluenceConfig()
	cfg.Dampening = config.AdjustmentConfig{ConfidenceThreshold: 0.95, ConsensusThreshold: 0.95, Factor: 30, Mode: config.ModeAdditive}
	agg := NewAggregator(cfg, newTestLogger(t), nil)

	comps := equalComponents(map[string]float64{"a": 70, "b": 40})
	res := agg.Aggregate("BTCUSDT", testTime, comps, nil)

	// Offset 5 shrunk by 30 must stop at neutral, not cross it.
	if res.CompositeScore != 50 {
		t.Fatalf("composite = %v, want 50", res.CompositeScore)
	}
}
