//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/eslsoft/vocsync/internal/adapter/docstore"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/database"
	"github.com/eslsoft/vocsync/internal/infrastructure/logging"
	"github.com/eslsoft/vocsync/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
	logging.NewLogger,
	provideFieldLogger,
)

var storeSet = wire.NewSet(
	database.OpenLocal,
	provideWordStore,
	docstore.BuildFromConfig,
)

var usecaseSet = wire.NewSet(
	provideRetryPolicy,
	provideIdentity,
	provideEntitlement,
	usecase.NewWordUsecase,
	provideBackupService,
	provideCollabEngine,
)

// Initialize builds the application container using Wire.
func Initialize(ctx context.Context) (*Container, func(), error) {
	wire.Build(
		configSet,
		storeSet,
		usecaseSet,
		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}
