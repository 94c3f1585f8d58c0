//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"gsd/internal"
	"gsd/internal/controllers"
	"gsd/internal/persistence"
	"gsd/internal/providers"
	"gsd/internal/services"
	"gsd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,
		providers.NewAuthProvider,

		persistence.NewZstdCompressor,
		persistence.NewFileManager,
		persistence.NewStoreRegistry,
		persistence.NewStoreFactory,
		persistence.NewScheduler,

		services.NewSessionManager,

		controllers.NewHealthController,
		controllers.NewUploadController,
		controllers.NewLastController,
		controllers.NewGlucoseController,
		controllers.NewEpisodeController,
		controllers.NewInstantGlucoseController,
		controllers.NewInsulinController,
		controllers.NewLowController,
		controllers.NewFoodController,
		controllers.NewUserdataController,
		controllers.NewWebhooksController,
		controllers.NewHbA1cController,

		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
