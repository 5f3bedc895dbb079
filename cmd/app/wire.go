//go:build wireinject
// +build wireinject

package main

import (
	"qrious/config"
	"qrious/internal/command"
	"qrious/internal/cron"
	"qrious/internal/database"
	"qrious/internal/encoder"
	"qrious/internal/handler"
	"qrious/internal/middleware"
	"qrious/internal/router"
	"qrious/internal/service"
	"qrious/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			encoder.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init command.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			service.ProviderSet,
			telemetry.ProviderSet,
			command.ProviderSet,
		),
	)
}
