package usecase

import (
	"context"
	"testing"
	"time"

	"Conflux/internal/domain/models"
	svccache "Conflux/internal/service/cache"
	"Conflux/internal/services/confluence"
	"Conflux/internal/services/governor"
	"Conflux/pkg/config"
	"Conflux/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordEvaluation(string)                                  {}
func (noopMetrics) RecordDecision(string, models.SignalType, models.Decision) {}
func (noopMetrics) RecordSuppression(string)                                 {}
func (noopMetrics) RecordInvalidComponent(string, string)                    {}
func (noopMetrics) RecordBoundsViolation(string)                             {}
func (noopMetrics) RecordError(string)                                       {}
func (noopMetrics) RecordLatency(string, float64)                            {}

type captureSink struct {
	published []*models.AlertEnvelope
	stored    []*models.AlertEnvelope
	notified  []*models.AlertEnvelope
}

func (c *captureSink) Publish(_ context.Context, e *models.AlertEnvelope) error {
	c.published = append(c.published, e)
	return nil
}

func (c *captureSink) Store(_ context.Context, e *models.AlertEnvelope) error {
	c.stored = append(c.stored, e)
	return nil
}

func (c *captureSink) Query(context.Context, string, time.Time, time.Time, int) ([]*models.AlertEnvelope, error) {
	return nil, nil
}

func (c *captureSink) Notify(_ context.Context, e *models.AlertEnvelope) error {
	c.notified = append(c.notified, e)
	return nil
}

func (c *captureSink) Health(context.Context) error { return nil }
func (c *captureSink) Close() error                 { return nil }

func newTestEvaluator(t *testing.T, sink *captureSink) *Evaluator {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	ccfg := config.ConfluenceConfig{
		BuyThreshold:  60,
		SellThreshold: 40,
		Amplification: config.AdjustmentConfig{ConfidenceThreshold: 1, ConsensusThreshold: 1, Mode: config.ModeMultiplicative},
		Dampening:     config.AdjustmentConfig{Mode: config.ModeMultiplicative},
	}
	gcfg := config.GovernorConfig{
		FailurePolicy: config.FailClosed,
		SignalTypes: map[string]config.SignalTypeConfig{
			"BUY":  {Cooldown: 30 * time.Minute, ImprovementThreshold: 3},
			"SELL": {Cooldown: 30 * time.Minute, ImprovementThreshold: 3},
		},
	}

	metrics := noopMetrics{}
	return NewEvaluator(EvaluatorDeps{
		Intake:     confluence.NewIntake(nil, log, metrics),
		Aggregator: confluence.NewAggregator(ccfg, log, metrics),
		Classifier: confluence.NewClassifier(ccfg),
		Governor:   governor.New(governor.NewMemoryStateStore(), gcfg, log, metrics),
		Publisher:  sink,
		Audit:      sink,
		Notifier:   sink,
		Latest:     svccache.NewTTLCache(),
		Metrics:    metrics,
		Logger:     log,
	})
}

func bullishSnapshot(symbol string) *models.ScoreSnapshot {
	return &models.ScoreSnapshot{
		Symbol:    symbol,
		Timestamp: time.Unix(1700000000, 0),
		Components: map[string]models.RawComponent{
			"technical": {Value: 75, Weight: 1},
			"orderflow": {Value: 72, Weight: 1},
		},
	}
}

func TestEvaluateEmitReachesAllSinks(t *testing.T) {
	sink := &captureSink{}
	e := newTestEvaluator(t, sink)

	env := e.Evaluate(context.Background(), bullishSnapshot("BTCUSDT"))

	if env.Decision != models.DecisionEmit {
		t.Fatalf("decision = %s/%s, want EMIT", env.Decision, env.SuppressionReason)
	}
	if len(sink.published) != 1 || len(sink.stored) != 1 || len(sink.notified) != 1 {
		t.Fatalf("sink counts pub=%d store=%d notify=%d, want 1/1/1",
			len(sink.published), len(sink.stored), len(sink.notified))
	}
}

func TestEvaluateSuppressedSkipsNotifierOnly(t *testing.T) {
	sink := &captureSink{}
	e := newTestEvaluator(t, sink)
	ctx := context.Background()

	e.Evaluate(ctx, bullishSnapshot("BTCUSDT"))
	env := e.Evaluate(ctx, bullishSnapshot("BTCUSDT")) // inside cooldown

	if env.Decision != models.DecisionSuppress || env.SuppressionReason != models.ReasonCooldownActive {
		t.Fatalf("got %s/%q, want SUPPRESS/cooldown_active", env.Decision, env.SuppressionReason)
	}
	if len(sink.published) != 2 || len(sink.stored) != 2 {
		t.Fatalf("suppressed envelope skipped publisher or audit: pub=%d store=%d",
			len(sink.published), len(sink.stored))
	}
	if len(sink.notified) != 1 {
		t.Fatalf("suppressed envelope reached notifier: %d", len(sink.notified))
	}
	if len(env.Confluence.Breakdown) == 0 {
		t.Fatalf("suppressed envelope lost its breakdown")
	}
}

func TestEvaluateNeutralSuppressed(t *testing.T) {
	sink := &captureSink{}
	e := newTestEvaluator(t, sink)

	env := e.Evaluate(context.Background(), &models.ScoreSnapshot{
		Symbol:    "BTCUSDT",
		Timestamp: time.Unix(1700000000, 0),
		Components: map[string]models.RawComponent{
			"technical": {Value: 52, Weight: 1},
			"orderflow": {Value: 48, Weight: 1},
		},
	})

	if env.Decision != models.DecisionSuppress || env.SuppressionReason != models.ReasonNeutralSignal {
		t.Fatalf("got %s/%q, want SUPPRESS/neutral_signal", env.Decision, env.SuppressionReason)
	}
}

func TestEvaluateLatestCache(t *testing.T) {
	sink := &captureSink{}
	e := newTestEvaluator(t, sink)

	want := e.Evaluate(context.Background(), bullishSnapshot("BTCUSDT"))

	got, ok := e.Latest("BTCUSDT")
	if !ok {
		t.Fatalf("latest envelope not cached")
	}
	if got != want {
		t.Fatalf("cached envelope differs from evaluation output")
	}
	if _, ok := e.Latest("ETHUSDT"); ok {
		t.Fatalf("unexpected envelope for unseen symbol")
	}
}

func TestScoresHandlerParsesSnapshot(t *testing.T) {
	sink := &captureSink{}
	e := newTestEvaluator(t, sink)
	h := NewKafkaScoresHandler("raw.scores", e, noopMetrics{})

	msg := []byte(`{"symbol":"BTCUSDT","t":1700000000000,"components":{` +
		`"technical":{"value":75,"weight":1,"interpretation":"breakout"},` +
		`"orderflow":{"value":72,"weight":1}}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(sink.published) != 1 {
		t.Fatalf("expected one evaluation, got %d", len(sink.published))
	}
	env := sink.published[0]
	if env.Confluence.Timestamp.Unix() != 1700000000 {
		t.Fatalf("ms timestamp not normalized: %v", env.Confluence.Timestamp)
	}
	if env.Confluence.Breakdown[1].Interpretation != "breakout" {
		t.Fatalf("component interpretation lost: %+v", env.Confluence.Breakdown)
	}
}

func TestScoresHandlerRejectsMalformed(t *testing.T) {
	sink := &captureSink{}
	h := NewKafkaScoresHandler("raw.scores", newTestEvaluator(t, sink), noopMetrics{})

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error for DLQ routing")
	}
	if err := h.Handle(context.Background(), []byte(`{"t":1}`)); err != nil {
		t.Fatalf("missing symbol should be dropped, not retried: %v", err)
	}
	if len(sink.published) != 0 {
		t.Fatalf("malformed messages reached the pipeline")
	}
}
