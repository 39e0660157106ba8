package governor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/pkg/config"
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

func testGovernorConfig() config.GovernorConfig {
	return config.GovernorConfig{
		FailurePolicy: config.FailClosed,
		SignalTypes: map[string]config.SignalTypeConfig{
			"BUY":  {Cooldown: 1800 * time.Second, ImprovementThreshold: 3.0, MinimumScore: 60},
			"SELL": {Cooldown: 1800 * time.Second, ImprovementThreshold: 3.0, MinimumScore: 0},
		},
	}
}

func buyResult(score float64) *models.ConfluenceResult {
	return &models.ConfluenceResult{
		Symbol:         "BTCUSDT",
		CompositeScore: score,
		SignalType:     models.SignalBuy,
	}
}

func TestGovernorCooldownAndImprovementOverride(t *testing.T) {
	g := New(NewMemoryStateStore(), testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)

	steps := []struct {
		score      float64
		offset     time.Duration
		want       models.Decision
		wantReason string
	}{
		{70, 0, models.DecisionEmit, ""},
		{71, 100 * time.Second, models.DecisionSuppress, models.ReasonCooldownActive}, // 71-70 < 3
		{76, 200 * time.Second, models.DecisionEmit, ""},                              // 76-70 >= 3, window resets
		{77, 300 * time.Second, models.DecisionSuppress, models.ReasonCooldownActive}, // against 76 now
	}

	for i, st := range steps {
		decision, reason, err := g.Decide(ctx, buyResult(st.score), t0.Add(st.offset))
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if decision != st.want || reason != st.wantReason {
			t.Fatalf("step %d (score %v): got %s/%q, want %s/%q",
				i, st.score, decision, reason, st.want, st.wantReason)
		}
	}
}

func TestGovernorCooldownExpiry(t *testing.T) {
	g := New(NewMemoryStateStore(), testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)

	if d, _, _ := g.Decide(ctx, buyResult(70), t0); d != models.DecisionEmit {
		t.Fatalf("first signal should emit")
	}
	if d, _, _ := g.Decide(ctx, buyResult(70), t0.Add(1799*time.Second)); d != models.DecisionSuppress {
		t.Fatalf("signal inside window should be suppressed")
	}
	if d, _, _ := g.Decide(ctx, buyResult(70), t0.Add(1800*time.Second)); d != models.DecisionEmit {
		t.Fatalf("signal at window end should emit")
	}
}

func TestGovernorSuppressesWithoutStoreAccess(t *testing.T) {
	// A store that fails loudly proves NEUTRAL and below-minimum signals
	// never reach it.
	g := New(&failingStore{}, testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	now := time.Now()

	neutral := &models.ConfluenceResult{Symbol: "BTCUSDT", CompositeScore: 50, SignalType: models.SignalNeutral}
	d, reason, err := g.Decide(ctx, neutral, now)
	if err != nil || d != models.DecisionSuppress || reason != models.ReasonNeutralSignal {
		t.Fatalf("neutral: got %s/%q err=%v", d, reason, err)
	}

	weak := buyResult(59.9) // below BUY minimum 60
	d, reason, err = g.Decide(ctx, weak, now)
	if err != nil || d != models.DecisionSuppress || reason != models.ReasonBelowMinimumScore {
		t.Fatalf("below minimum: got %s/%q err=%v", d, reason, err)
	}
}

func TestGovernorFailurePolicies(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("fail closed", func(t *testing.T) {
		cfg := testGovernorConfig()
		g := New(&failingStore{}, cfg, newTestLogger(t), nil)
		d, reason, err := g.Decide(ctx, buyResult(70), now)
		if err == nil {
			t.Fatalf("expected surfaced store error")
		}
		if d != models.DecisionSuppress || reason != models.ReasonGovernorUnavailable {
			t.Fatalf("got %s/%q, want SUPPRESS/governor_unavailable", d, reason)
		}
	})

	t.Run("fail open", func(t *testing.T) {
		cfg := testGovernorConfig()
		cfg.FailurePolicy = config.FailOpen
		g := New(&failingStore{}, cfg, newTestLogger(t), nil)
		d, reason, err := g.Decide(ctx, buyResult(70), now)
		if err == nil {
			t.Fatalf("expected surfaced store error")
		}
		if d != models.DecisionEmit || reason != "" {
			t.Fatalf("got %s/%q, want EMIT with no reason", d, reason)
		}
	})
}

// Two concurrent qualifying evaluations for the same key must not both
// observe IDLE and both emit.
func TestGovernorConcurrentSingleEmit(t *testing.T) {
	g := New(NewMemoryStateStore(), testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	emits := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _, err := g.Decide(ctx, buyResult(70), now)
			if err != nil {
				t.Errorf("decide: %v", err)
				return
			}
			if d == models.DecisionEmit {
				mu.Lock()
				emits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if emits != 1 {
		t.Fatalf("got %d emits for one key, want exactly 1", emits)
	}
}

func TestGovernorStateOnlyMutatedOnEmit(t *testing.T) {
	store := NewMemoryStateStore()
	g := New(store, testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)

	if d, _, _ := g.Decide(ctx, buyResult(70), t0); d != models.DecisionEmit {
		t.Fatalf("first signal should emit")
	}
	g.Decide(ctx, buyResult(71), t0.Add(100*time.Second)) // suppressed

	st, err := store.Get(ctx, models.StateKey("BTCUSDT", models.SignalBuy))
	if err != nil || st == nil {
		t.Fatalf("state missing: %v", err)
	}
	if st.LastEmittedScore != 70 || !st.LastEmitTime.Equal(t0) {
		t.Fatalf("suppression mutated state: %+v", st)
	}
}

func TestGovernorStates(t *testing.T) {
	store := NewMemoryStateStore()
	g := New(store, testGovernorConfig(), newTestLogger(t), nil)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	g.Decide(ctx, buyResult(70), now)
	sell := &models.ConfluenceResult{Symbol: "BTCUSDT", CompositeScore: 30, SignalType: models.SignalSell}
	g.Decide(ctx, sell, now)
	other := &models.ConfluenceResult{Symbol: "ETHUSDT", CompositeScore: 70, SignalType: models.SignalBuy}
	g.Decide(ctx, other, now)

	states, err := g.States(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states for BTCUSDT, want 2", len(states))
	}
	for _, st := range states {
		if st.Symbol != "BTCUSDT" {
			t.Fatalf("foreign symbol leaked: %+v", st)
		}
	}
}

type failingStore struct{}

var errStoreDown = errors.New("state store down")

func (f *failingStore) Get(context.Context, string) (*models.FrequencyState, error) {
	return nil, errStoreDown
}

func (f *failingStore) Update(context.Context, string, func(*models.FrequencyState) (*models.FrequencyState, error)) error {
	return errStoreDown
}

func (f *failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, errStoreDown
}

func (f *failingStore) Close() error { return nil }
