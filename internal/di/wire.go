//go:build wireinject
// +build wireinject

package di

import (
	"SmartEnergy/pkg/config"
	"SmartEnergy/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideRedisClient,
	ProvideClickHouseClient,
	ProvidePostgresClient,
	ProvideMetrics,
)

var domainSet = wire.NewSet(
	ProvideWindow,
	ProvideSimulator,
	ProvideEngine,
	ProvideTokenIssuer,
	ProvideHasher,
)

var storageSet = wire.NewSet(
	ProvideUserStore,
	ProvideCache,
	ProvideReadingArchive,
	ProvideReadingArchiver,
)

var alertSet = wire.NewSet(
	ProvideFanout,
	ProvideAlertQueue,
	ProvideAlertSink,
	ProvideContactResolver,
	ProvideDispatcher,
)

var usecaseSet = wire.NewSet(
	ProvideMeterUseCase,
	ProvideLeaderboardUseCase,
	ProvideInsightsUseCase,
	ProvideAuthUseCase,
	ProvideHistoryUseCase,
	ProvideAlertUseCase,
	ProvideKafkaConsumer,
	ProvideReadingCollector,
)

var httpSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHealthChecks,
	ProvideHTTPHandler,
	ProvideHTTPServer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		domainSet,
		storageSet,
		alertSet,
		usecaseSet,
		httpSet,
		ProvideApp,
	)
	return nil, nil, nil
}
