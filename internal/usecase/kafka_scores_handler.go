package usecase

import (
	"context"
	"encoding/json"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkgkafka "Conflux/pkg/kafka"
)

// SnapshotProcessor runs one snapshot through the evaluation pipeline. A
// nil envelope means the snapshot was dropped upstream of evaluation.
type SnapshotProcessor interface {
	Evaluate(ctx context.Context, snap *models.ScoreSnapshot) *models.AlertEnvelope
}

// KafkaScoresHandler consumes score snapshots and drives one evaluation per
// message. Per-partition ordering in the consumer keeps a symbol's cycles
// sequential as long as producers key by symbol.
type KafkaScoresHandler struct {
	topic     string
	evaluator SnapshotProcessor
	metrics   domrepo.Metrics
}

func NewKafkaScoresHandler(topic string, evaluator SnapshotProcessor, metrics domrepo.Metrics) *KafkaScoresHandler {
	return &KafkaScoresHandler{topic: topic, evaluator: evaluator, metrics: metrics}
}

func (h *KafkaScoresHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, components:{name:{value, weight, interpretation?, subcomponents?}}}
func (h *KafkaScoresHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol     string                         `json:"symbol"`
		T          int64                          `json:"t"`
		Components map[string]models.RawComponent `json:"components"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Symbol == "" {
		h.metrics.RecordError("consumer_missing_symbol")
		return nil // nothing to retry
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	h.evaluator.Evaluate(ctx, &models.ScoreSnapshot{
		Symbol:     m.Symbol,
		Timestamp:  time.Unix(m.T, 0),
		Components: m.Components,
	})
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaScoresHandler)(nil)
