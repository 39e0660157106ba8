package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Conflux/internal/domain/repository"
	"Conflux/internal/handler/api"
	mid "Conflux/internal/middleware"
	internalrepo "Conflux/internal/repository"
	icache "Conflux/internal/service/cache"
	"Conflux/internal/services/confluence"
	"Conflux/internal/services/governor"
	"Conflux/internal/usecase"
	pkgcache "Conflux/pkg/cache"
	pkgch "Conflux/pkg/clickhouse"
	"Conflux/pkg/config"
	xhttp "Conflux/pkg/http"
	pkgkafka "Conflux/pkg/kafka"
	applogger "Conflux/pkg/logger"
	"Conflux/pkg/metrics"
	"Conflux/pkg/queue"
	"Conflux/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// audit schema. Returns nil when the audit store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.AuditTable
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
            ts DateTime64(3),
            symbol LowCardinality(String),
            signal_type LowCardinality(String),
            composite_score Float64,
            consensus Float64,
            confidence Float64,
            decision LowCardinality(String),
            suppression_reason String,
            payload String
        ) ENGINE = MergeTree
        ORDER BY (symbol, ts)
        TTL toDateTime(ts) + INTERVAL 30 DAY`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache creates the shared Redis client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	opts := []pkgcache.RedisOption{
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, pkgcache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	rc, err := pkgcache.NewRedisCache(opts...)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideStateStore selects the governor state backend: Redis when
// configured so replicas share cooldown state, in-process memory otherwise.
func ProvideStateStore(rc *pkgcache.RedisCache) domrepo.StateStore {
	if rc != nil {
		return governor.NewRedisStateStore(rc)
	}
	return governor.NewMemoryStateStore()
}

// ProvideGovernor creates the frequency governor.
func ProvideGovernor(store domrepo.StateStore, cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) *governor.FrequencyGovernor {
	return governor.New(store, cfg.Governor, l, m)
}

// ProvideIntake creates the component score validator.
func ProvideIntake(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) *confluence.Intake {
	return confluence.NewIntake(cfg.Confluence.Weights, l, m)
}

// ProvideAggregator creates the confluence aggregator.
func ProvideAggregator(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) *confluence.Aggregator {
	return confluence.NewAggregator(cfg.Confluence, l, m)
}

// ProvideClassifier creates the signal classifier.
func ProvideClassifier(cfg *config.Config) *confluence.Classifier {
	return confluence.NewClassifier(cfg.Confluence)
}

// ProvideEnvelopePublisher creates the Kafka alerts publisher.
func ProvideEnvelopePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	return internalrepo.NewKafkaEnvelopePublisher(producer, cfg.Kafka.AlertsTopic)
}

// ProvideAuditStore creates the ClickHouse audit repository, or nil when the
// ClickHouse client is disabled.
func ProvideAuditStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.AuditStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewClickHouseAuditStore(chClient.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.AuditTable)
	store.SetLogger(l)
	return store
}

func newWebhookNotifier(cfg *config.Config) domrepo.Notifier {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Notifier.Timeout))
	return internalrepo.NewWebhookNotifier(client, cfg.Notifier.WebhookURL)
}

// ProvideNotifyQueue creates the Redis job queue that delivers webhook
// notifications off the evaluation path. Nil when notifications are disabled
// or Redis is unavailable; the notifier then posts directly.
func ProvideNotifyQueue(cfg *config.Config, l *applogger.Logger, rc *pkgcache.RedisCache) *queue.RedisQueue {
	if !cfg.Notifier.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewNotifyJob(newWebhookNotifier(cfg)))
	return q
}

// ProvideNotifier selects the alert notifier: queue-backed when a Redis
// queue exists, direct webhook otherwise, nil when disabled.
func ProvideNotifier(cfg *config.Config, q *queue.RedisQueue) domrepo.Notifier {
	if !cfg.Notifier.Enabled {
		return nil
	}
	if q != nil {
		return internalrepo.NewQueueNotifier(q, usecase.NotifyMessageType)
	}
	return newWebhookNotifier(cfg)
}

// ProvideEvaluator assembles the evaluation pipeline with its sinks.
func ProvideEvaluator(
	intake *confluence.Intake,
	agg *confluence.Aggregator,
	cls *confluence.Classifier,
	gov *governor.FrequencyGovernor,
	pub domrepo.Publisher,
	audit domrepo.AuditStore,
	notifier domrepo.Notifier,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Evaluator {
	return usecase.NewEvaluator(usecase.EvaluatorDeps{
		Intake:     intake,
		Aggregator: agg,
		Classifier: cls,
		Governor:   gov,
		Publisher:  pub,
		Audit:      audit,
		Notifier:   notifier,
		Latest:     icache.NewTTLCache(),
		Metrics:    m,
		Logger:     l,
	})
}

// ProvideScoresHandler registers the handler for the scores topic behind the
// validation pipeline.
func ProvideScoresHandler(evaluator *usecase.Evaluator, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaScoresHandler {
	pipe := mid.NewSnapshotPipeline(evaluator, m)
	return usecase.NewKafkaScoresHandler(cfg.Kafka.ScoresTopic, pipe, m)
}

// ProvideEnvelopesUseCase creates the read-side use case.
func ProvideEnvelopesUseCase(evaluator *usecase.Evaluator, audit domrepo.AuditStore, gov *governor.FrequencyGovernor) *usecase.EnvelopesUseCase {
	return usecase.NewEnvelopesUseCase(evaluator, audit, gov)
}

// ProvideHTTPHandler creates the Echo handler with response caching. The
// history cache is Redis-backed when available so replicas share entries.
func ProvideHTTPHandler(l *applogger.Logger, uc *usecase.EnvelopesUseCase, cfg *config.Config) xhttp.Handler {
	h := api.NewEnvelopesEchoHandler(l, uc)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	evaluator *usecase.Evaluator,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaScoresHandler,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	notifyQueue *queue.RedisQueue,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}

	// Aggregate repeated warn-level diagnostics into a Redis stream of
	// their own; a publisher-only queue never dequeues them itself
	if rc != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      queue.NewRedisPublisher(l, rc.Client(), queue.WithKeyPrefix("conflux:logs")),
		})
	}

	app := server.New(cfg, l, evaluator, consumer, kh, chClient)
	app.SetHTTPHandler(httpHandler)
	if notifyQueue != nil {
		app.SetNotifyQueue(notifyQueue)
	}
	return app
}
