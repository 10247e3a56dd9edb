//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/moyogo/clld/internal/adapter/repository"
	"github.com/moyogo/clld/internal/infrastructure/config"
	"github.com/moyogo/clld/internal/infrastructure/database"
	"github.com/moyogo/clld/internal/infrastructure/logging"
	"github.com/moyogo/clld/internal/usecase/load"
)

var configSet = wire.NewSet(
	config.Load,
)

var infrastructureSet = wire.NewSet(
	logging.NewLogger,
	database.NewConnection,
)

var repositorySet = wire.NewSet(
	repository.NewSourceRepository,
)

var usecaseSet = wire.NewSet(
	load.NewLoader,
	provideGBSService,
)

// Initialize builds the application container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		infrastructureSet,
		repositorySet,
		usecaseSet,
		wire.Struct(new(Container), "Config", "Logger", "DB", "Loader", "GBS"),
	)
	return nil, nil, nil
}
