package service

import (
	"context"
	"time"

	"Conflux/internal/domain/models"
)

// Adjuster is the pluggable amplification/dampening curve applied to a
// composite score. It must not move the score across the [0,100] bounds;
// the aggregator clamps and logs if it does.
type Adjuster func(composite float64) float64

// Governor decides whether a classified signal may be emitted now.
type Governor interface {
	Decide(ctx context.Context, res *models.ConfluenceResult, at time.Time) (models.Decision, string, error)
}
