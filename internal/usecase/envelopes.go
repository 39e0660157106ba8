package usecase

import (
	"context"
	"fmt"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/internal/services/governor"
)

// EnvelopesUseCase serves read access to evaluation output: the cached
// latest envelope, audited history and governor cooldown states.
type EnvelopesUseCase struct {
	evaluator *Evaluator
	audit     domrepo.AuditStore
	governor  *governor.FrequencyGovernor
	timeout   time.Duration
}

func NewEnvelopesUseCase(evaluator *Evaluator, audit domrepo.AuditStore, gov *governor.FrequencyGovernor) *EnvelopesUseCase {
	return &EnvelopesUseCase{evaluator: evaluator, audit: audit, governor: gov, timeout: 10 * time.Second}
}

func (uc *EnvelopesUseCase) Latest(symbol string) (*models.AlertEnvelope, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	env, ok := uc.evaluator.Latest(symbol)
	if !ok {
		return nil, nil
	}
	return env, nil
}

type HistoryParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

func (uc *EnvelopesUseCase) History(ctx context.Context, p HistoryParams) ([]*models.AlertEnvelope, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if uc.audit == nil {
		return nil, fmt.Errorf("audit store disabled")
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.To.IsZero() {
		p.To = time.Now()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-24 * time.Hour)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	return uc.audit.Query(ctx, p.Symbol, p.From, p.To, p.Limit)
}

func (uc *EnvelopesUseCase) GovernorStates(ctx context.Context, symbol string) ([]*models.FrequencyState, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	return uc.governor.States(ctx, symbol)
}
