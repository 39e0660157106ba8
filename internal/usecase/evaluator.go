package usecase

import (
	"context"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	svccache "Conflux/internal/service/cache"
	"Conflux/internal/services/confluence"
	"Conflux/pkg/logger"
)

// Evaluator runs one symbol's evaluation cycle: intake, aggregation,
// classification, governor decision and envelope fan-out. Stages are
// sequential within a cycle; cycles for different symbols run concurrently
// on the consumer's worker pool.
type Evaluator struct {
	intake     *confluence.Intake
	aggregator *confluence.Aggregator
	classifier *confluence.Classifier
	governor   domsvc.Governor

	publisher domrepo.Publisher
	audit     domrepo.AuditStore
	notifier  domrepo.Notifier

	latest    *svccache.TTLCache
	latestTTL time.Duration

	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

type EvaluatorDeps struct {
	Intake     *confluence.Intake
	Aggregator *confluence.Aggregator
	Classifier *confluence.Classifier
	Governor   domsvc.Governor

	// Sinks are optional; a nil sink is skipped.
	Publisher domrepo.Publisher
	Audit     domrepo.AuditStore
	Notifier  domrepo.Notifier

	Latest    *svccache.TTLCache
	LatestTTL time.Duration

	Metrics domrepo.Metrics
	Logger  *logger.Logger
}

func NewEvaluator(d EvaluatorDeps) *Evaluator {
	if d.LatestTTL <= 0 {
		d.LatestTTL = 10 * time.Minute
	}
	return &Evaluator{
		intake:     d.Intake,
		aggregator: d.Aggregator,
		classifier: d.Classifier,
		governor:   d.Governor,
		publisher:  d.Publisher,
		audit:      d.Audit,
		notifier:   d.Notifier,
		latest:     d.Latest,
		latestTTL:  d.LatestTTL,
		metrics:    d.Metrics,
		log:        d.Logger,
		now:        time.Now,
	}
}

// Evaluate processes one score snapshot and returns the built envelope.
// Governor and sink failures never abort the cycle: the governor failure
// policy encodes the decision, sink failures are logged and counted. An
// envelope is produced for every snapshot.
func (e *Evaluator) Evaluate(ctx context.Context, snap *models.ScoreSnapshot) *models.AlertEnvelope {
	start := e.now()
	e.metrics.RecordEvaluation(snap.Symbol)

	ts := snap.Timestamp
	if ts.IsZero() {
		ts = start
	}

	valid, invalid := e.intake.Validate(snap)
	res := e.aggregator.Aggregate(snap.Symbol, ts, valid, invalid)
	e.classifier.Classify(&res)

	decision, reason, err := e.governor.Decide(ctx, &res, start)
	if err != nil {
		// Already logged by the governor; the policy decision stands and
		// the envelope records it.
		e.log.Debug("governor decided under failure policy",
			logger.String("symbol", snap.Symbol),
			logger.String("decision", string(decision)))
	}

	env := models.NewAlertEnvelope(res, decision, reason, start)

	e.metrics.RecordDecision(snap.Symbol, res.SignalType, decision)
	if env.Suppressed() {
		e.metrics.RecordSuppression(env.SuppressionReason)
	}

	e.dispatch(ctx, &env)

	if e.latest != nil {
		e.latest.Set(snap.Symbol, &env, e.latestTTL)
	}

	e.metrics.RecordLatency("evaluate", e.now().Sub(start).Seconds())
	return &env
}

// dispatch fans the envelope out to the configured sinks. Every envelope
// reaches the publisher and the audit store; only emitted ones reach the
// notifier.
func (e *Evaluator) dispatch(ctx context.Context, env *models.AlertEnvelope) {
	symbol := env.Confluence.Symbol

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, env); err != nil {
			e.metrics.RecordError("publish_envelope")
			e.log.Error("publish envelope failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}

	if e.audit != nil {
		if err := e.audit.Store(ctx, env); err != nil {
			e.metrics.RecordError("audit_envelope")
			e.log.Error("audit envelope failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}

	if e.notifier != nil && env.Decision == models.DecisionEmit {
		if err := e.notifier.Notify(ctx, env); err != nil {
			e.metrics.RecordError("notify_envelope")
			e.log.Error("notify envelope failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
}

// Latest returns the most recent envelope for a symbol, if still cached.
func (e *Evaluator) Latest(symbol string) (*models.AlertEnvelope, bool) {
	if e.latest == nil {
		return nil, false
	}
	v, ok := e.latest.Get(symbol)
	if !ok {
		return nil, false
	}
	env, ok := v.(*models.AlertEnvelope)
	return env, ok
}

// Close releases the evaluator's sinks.
func (e *Evaluator) Close() {
	if e.publisher != nil {
		_ = e.publisher.Close()
	}
	if e.audit != nil {
		_ = e.audit.Close()
	}
}
