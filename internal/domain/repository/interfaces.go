package repository

import (
	"context"
	"time"

	"Conflux/internal/domain/models"
)

// Publisher delivers envelopes to the alerts transport (Kafka).
type Publisher interface {
	Publish(ctx context.Context, e *models.AlertEnvelope) error
	Close() error
}

// AuditStore persists every envelope, EMIT and SUPPRESS alike, so that
// suppressed signals remain inspectable. Retention is the table's concern.
type AuditStore interface {
	Store(ctx context.Context, e *models.AlertEnvelope) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.AlertEnvelope, error)
	Health(ctx context.Context) error
	Close() error
}

// Notifier pushes EMIT-decision envelopes to the external notification
// channel. Transport only; formatting is out of scope.
type Notifier interface {
	Notify(ctx context.Context, e *models.AlertEnvelope) error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordEvaluation(symbol string)
	RecordDecision(symbol string, signalType models.SignalType, decision models.Decision)
	RecordSuppression(reason string)
	RecordInvalidComponent(symbol, component string)
	RecordBoundsViolation(field string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
