//go:build wireinject
// +build wireinject

package di

import (
	"FinScan/pkg/config"
	applogger "FinScan/pkg/logger"
	"FinScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config, l *applogger.Logger) (*server.App, error) {
	wire.Build(
		ProvideMetrics,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		ProvideMarketDataProvider,
		ProvideUniverse,
		ProvideEngine,

		ProvideHub,
		ProvideLatest,
		ProvideScanner,
		ProvideScheduler,
		ProvideKafkaConsumer,

		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
