//go:build wireinject
// +build wireinject

package di

import (
	"SpendLens/pkg/config"
	"SpendLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTransactionStore,
		ProvideExclusionStore,
		ProvidePublisher,

		// Use cases
		ProvideInsightService,
		ProvideRescanQueue,
		ProvideIngestProcessor,
		ProvideFeedCollector,
		ProvideKafkaTransactionsHandler,

		// HTTP surface
		ProvideInsightsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
