package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
)

// Proc is the minimal evaluator interface the pipeline needs.
type Proc interface {
	Evaluate(ctx context.Context, snap *models.ScoreSnapshot) *models.AlertEnvelope
}

// SnapshotPipeline is a middleware between the score consumer and the
// evaluator. It validates snapshots, throttles per-symbol evaluation rate
// against upstream storms, and optionally transforms the snapshot before
// evaluation. Dropped snapshots return a nil envelope.
type SnapshotPipeline struct {
	next        Proc
	metrics     domrepo.Metrics
	minInterval time.Duration
	mu          sync.Mutex
	lastSeen    map[string]time.Time // per-symbol last accepted time
	// simple format transform hook (optional)
	transform func(*models.ScoreSnapshot) *models.ScoreSnapshot
}

type PipelineOption func(*SnapshotPipeline)

// WithMinInterval sets the minimum spacing between evaluations per symbol.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d > 0 {
			p.minInterval = d
		}
	}
}

// WithTransform sets a transformation hook applied before evaluation.
func WithTransform(fn func(*models.ScoreSnapshot) *models.ScoreSnapshot) PipelineOption {
	return func(p *SnapshotPipeline) { p.transform = fn }
}

// NewSnapshotPipeline creates a new pipeline in front of the evaluator.
func NewSnapshotPipeline(next Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		next:     next,
		metrics:  metrics,
		lastSeen: make(map[string]time.Time),
		transform: func(s *models.ScoreSnapshot) *models.ScoreSnapshot {
			s.Symbol = strings.ToUpper(s.Symbol)
			return s
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate validates and throttles, then forwards to the evaluator.
func (p *SnapshotPipeline) Evaluate(ctx context.Context, snap *models.ScoreSnapshot) *models.AlertEnvelope {
	if err := validateSnapshot(snap); err != "" {
		p.metrics.RecordError("pipeline_" + err)
		return nil
	}
	if p.transform != nil {
		snap = p.transform(snap)
	}
	if !p.allow(snap.Symbol, time.Now()) {
		// throttled; drop silently, the next cycle carries fresh scores
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}
	return p.next.Evaluate(ctx, snap)
}

func validateSnapshot(s *models.ScoreSnapshot) string {
	if s == nil {
		return "snapshot_nil"
	}
	if s.Symbol == "" {
		return "symbol_empty"
	}
	if len(s.Components) == 0 {
		return "components_empty"
	}
	return ""
}

func (p *SnapshotPipeline) allow(symbol string, now time.Time) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastSeen[symbol]
	if !last.IsZero() && now.Sub(last) < p.minInterval {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
