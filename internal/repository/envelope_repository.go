package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkgkafka "Conflux/pkg/kafka"
	applogger "Conflux/pkg/logger"
)

// KafkaEnvelopePublisher publishes every alert envelope, keyed by symbol so
// a symbol's envelopes stay ordered within a partition.
type KafkaEnvelopePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEnvelopePublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaEnvelopePublisher{producer: producer, topic: topic}
}

func (p *KafkaEnvelopePublisher) Publish(ctx context.Context, e *models.AlertEnvelope) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.Confluence.Symbol), e)
}

func (p *KafkaEnvelopePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// ClickHouseAuditStore persists EMIT and SUPPRESS envelopes alike. The lead
// columns make decisions queryable; the payload column keeps the complete
// envelope for inspection. Retention is the table's TTL.
type ClickHouseAuditStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseAuditStore(db *sql.DB, table string) *ClickHouseAuditStore {
	return &ClickHouseAuditStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseAuditStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseAuditStore) Store(ctx context.Context, e *models.AlertEnvelope) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s
        (ts, symbol, signal_type, composite_score, consensus, confidence, decision, suppression_reason, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		e.EvaluatedAt,
		e.Confluence.Symbol,
		string(e.Confluence.SignalType),
		e.Confluence.CompositeScore,
		e.Confluence.Consensus,
		e.Confluence.Confidence,
		string(e.Decision),
		e.SuppressionReason,
		string(payload),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse audit insert error",
				applogger.String("symbol", e.Confluence.Symbol),
				applogger.String("decision", string(e.Decision)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store envelope: %w", err)
	}
	return nil
}

func (s *ClickHouseAuditStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.AlertEnvelope, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse audit query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AlertEnvelope, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		var e models.AlertEnvelope
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAuditStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.AuditStore = (*ClickHouseAuditStore)(nil)
