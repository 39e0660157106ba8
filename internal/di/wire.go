//go:build wireinject
// +build wireinject

package di

import (
	"Conflux/pkg/config"
	"Conflux/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Confluence services
		ProvideIntake,
		ProvideAggregator,
		ProvideClassifier,

		// Governor
		ProvideStateStore,
		ProvideGovernor,

		// Sinks
		ProvideEnvelopePublisher,
		ProvideAuditStore,
		ProvideNotifyQueue,
		ProvideNotifier,

		// Use cases
		ProvideEvaluator,
		ProvideScoresHandler,
		ProvideEnvelopesUseCase,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
