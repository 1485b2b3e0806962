//go:build wireinject
// +build wireinject

package di

import (
	"FinGate/pkg/config"
	"FinGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideEventPublisher,
		ProvideCacheStore,
		ProvideLimiter,

		// Upstreams and use cases
		ProvideTextGenerator,
		ProvideMarketData,
		ProvideAssistant,

		// Application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
