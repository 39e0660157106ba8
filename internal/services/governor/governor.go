package governor

import (
	"context"
	"fmt"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	"Conflux/pkg/config"
	"Conflux/pkg/logger"
)

// FrequencyGovernor throttles emissions per (symbol, signal_type) key.
// A key is IDLE until an emission starts its cooldown window; inside the
// window only a sufficiently improved score may emit again. State is
// mutated only on EMIT.
type FrequencyGovernor struct {
	store   domrepo.StateStore
	cfg     config.GovernorConfig
	log     *logger.Logger
	metrics domrepo.Metrics
}

func New(store domrepo.StateStore, cfg config.GovernorConfig, log *logger.Logger, metrics domrepo.Metrics) *FrequencyGovernor {
	return &FrequencyGovernor{store: store, cfg: cfg, log: log, metrics: metrics}
}

// Decide applies the throttling state machine to a classified result at
// time `at`. NEUTRAL and below-minimum results are suppressed without
// touching the store. A store failure returns the configured policy's
// decision alongside the error; the caller owns retry/backoff.
func (g *FrequencyGovernor) Decide(ctx context.Context, res *models.ConfluenceResult, at time.Time) (models.Decision, string, error) {
	if res.SignalType == models.SignalNeutral {
		return models.DecisionSuppress, models.ReasonNeutralSignal, nil
	}

	profile, ok := g.cfg.SignalTypeFor(string(res.SignalType))
	if !ok {
		// No profile configured for this type: nothing to throttle.
		return models.DecisionEmit, "", nil
	}
	if res.CompositeScore < profile.MinimumScore {
		return models.DecisionSuppress, models.ReasonBelowMinimumScore, nil
	}

	key := models.StateKey(res.Symbol, res.SignalType)
	decision := models.DecisionSuppress
	reason := models.ReasonCooldownActive

	err := g.store.Update(ctx, key, func(prev *models.FrequencyState) (*models.FrequencyState, error) {
		if prev.Cooling(at, profile.Cooldown) {
			if res.CompositeScore-prev.LastEmittedScore >= profile.ImprovementThreshold {
				// Score-improvement override: fresh emission, window resets.
				decision, reason = models.DecisionEmit, ""
				return emitted(res, at), nil
			}
			// Suppressed: state untouched.
			return nil, nil
		}
		decision, reason = models.DecisionEmit, ""
		return emitted(res, at), nil
	})
	if err != nil {
		return g.onStoreFailure(res, key, err)
	}

	return decision, reason, nil
}

// onStoreFailure applies the configured failure policy. fail_closed
// suppresses to avoid a notification storm; fail_open emits without
// recording state.
func (g *FrequencyGovernor) onStoreFailure(res *models.ConfluenceResult, key string, err error) (models.Decision, string, error) {
	g.log.Error("governor state store unavailable",
		logger.String("key", key),
		logger.String("policy", g.cfg.FailurePolicy),
		logger.Error(err))
	if g.metrics != nil {
		g.metrics.RecordError("governor_state_store")
	}

	wrapped := fmt.Errorf("governor state for %s: %w", key, err)
	if g.cfg.FailurePolicy == config.FailOpen {
		return models.DecisionEmit, "", wrapped
	}
	return models.DecisionSuppress, models.ReasonGovernorUnavailable, wrapped
}

// States returns the persisted cooldown states for a symbol.
func (g *FrequencyGovernor) States(ctx context.Context, symbol string) ([]*models.FrequencyState, error) {
	keys, err := g.store.Keys(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("governor keys for %s: %w", symbol, err)
	}

	states := make([]*models.FrequencyState, 0, len(keys))
	for _, key := range keys {
		st, err := g.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("governor state %s: %w", key, err)
		}
		if st != nil {
			states = append(states, st)
		}
	}
	return states, nil
}

func emitted(res *models.ConfluenceResult, at time.Time) *models.FrequencyState {
	return &models.FrequencyState{
		Symbol:           res.Symbol,
		SignalType:       res.SignalType,
		LastEmitTime:     at,
		LastEmittedScore: res.CompositeScore,
	}
}

var _ domsvc.Governor = (*FrequencyGovernor)(nil)
