package confluence

import (
	"math"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return l
}

func snapshot(components map[string]models.RawComponent) *models.ScoreSnapshot {
	return &models.ScoreSnapshot{
		Symbol:     "BTCUSDT",
		Timestamp:  time.Unix(1700000000, 0),
		Components: components,
	}
}

func TestValidateExcludesInvalidComponents(t *testing.T) {
	tests := []struct {
		name        string
		component   models.RawComponent
		wantInvalid bool
	}{
		{"nan value", models.RawComponent{Value: math.NaN(), Weight: 1}, true},
		{"positive inf", models.RawComponent{Value: math.Inf(1), Weight: 1}, true},
		{"negative inf", models.RawComponent{Value: math.Inf(-1), Weight: 1}, true},
		{"below sanity window", models.RawComponent{Value: -11, Weight: 1}, true},
		{"above sanity window", models.RawComponent{Value: 111, Weight: 1}, true},
		{"negative weight", models.RawComponent{Value: 50, Weight: -1}, true},
		{"nan weight", models.RawComponent{Value: 50, Weight: math.NaN()}, true},
		{"edge of window low", models.RawComponent{Value: -10, Weight: 1}, false},
		{"edge of window high", models.RawComponent{Value: 110, Weight: 1}, false},
		{"nominal", models.RawComponent{Value: 62.5, Weight: 1}, false},
	}

	in := NewIntake(nil, newTestLogger(t), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, invalid := in.Validate(snapshot(map[string]models.RawComponent{
				"probe":  tt.component,
				"anchor": {Value: 50, Weight: 1},
			}))
			gotInvalid := len(invalid) == 1 && invalid[0] == "probe"
			if gotInvalid != tt.wantInvalid {
				t.Fatalf("invalid=%v, want invalid=%v", invalid, tt.wantInvalid)
			}
			wantValid := 2
			if tt.wantInvalid {
				wantValid = 1
			}
			if len(valid) != wantValid {
				t.Fatalf("got %d valid components, want %d", len(valid), wantValid)
			}
		})
	}
}

func TestValidateRenormalizesWeights(t *testing.T) {
	in := NewIntake(nil, newTestLogger(t), nil)
	valid, _ := in.Validate(snapshot(map[string]models.RawComponent{
		"technical": {Value: 60, Weight: 2},
		"volume":    {Value: 40, Weight: 2},
		"sentiment": {Value: math.NaN(), Weight: 6},
	}))

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid components, got %d", len(valid))
	}
	var sum float64
	for _, c := range valid {
		sum += c.Weight
		if c.Contribution != c.Weight*c.Value {
			t.Fatalf("contribution %v != weight*value %v", c.Contribution, c.Weight*c.Value)
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("renormalized weights sum to %v, want 1", sum)
	}
	// The excluded component's weight must not dilute the survivors.
	if math.Abs(valid[0].Weight-0.5) > 1e-12 {
		t.Fatalf("expected equal split 0.5, got %v", valid[0].Weight)
	}
}

func TestValidateConfiguredWeightFallback(t *testing.T) {
	in := NewIntake(map[string]float64{"technical": 3, "volume": 1}, newTestLogger(t), nil)
	valid, invalid := in.Validate(snapshot(map[string]models.RawComponent{
		"technical": {Value: 80},
		"volume":    {Value: 40},
		"orderflow": {Value: 50}, // no supplied or configured weight
	}))

	if len(invalid) != 1 || invalid[0] != "orderflow" {
		t.Fatalf("expected orderflow excluded, got %v", invalid)
	}
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid, got %d", len(valid))
	}
	if math.Abs(valid[0].Weight-0.75) > 1e-12 {
		t.Fatalf("expected technical weight 0.75, got %v", valid[0].Weight)
	}
}

func TestValidateEmptySet(t *testing.T) {
	in := NewIntake(nil, newTestLogger(t), nil)
	valid, invalid := in.Validate(snapshot(map[string]models.RawComponent{
		"technical": {Value: math.NaN(), Weight: 1},
		"volume":    {Value: math.Inf(1), Weight: 1},
	}))
	if len(valid) != 0 {
		t.Fatalf("expected empty valid set, got %v", valid)
	}
	if len(invalid) != 2 {
		t.Fatalf("expected both excluded, got %v", invalid)
	}
}
