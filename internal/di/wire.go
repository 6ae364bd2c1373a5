//go:build wireinject
// +build wireinject

package di

import (
	"MarketCast/pkg/config"
	"MarketCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideCandleStorage,
		ProvideCandlePublisher,
		ProvideCandleStore,
		ProvideResultStore,
		ProvideMarketStream,

		// Use cases
		ProvideBarProcessor,
		ProvideBarCollector,
		ProvideKafkaBarsHandler,
		ProvideEvaluationUseCase,
		ProvideForecastUseCase,
		ProvideCandlesUseCase,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
