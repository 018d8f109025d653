//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"rewind/internal"
	"rewind/internal/controllers"
	"rewind/internal/providers"
	"rewind/internal/report"
	"rewind/internal/store"
	"rewind/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		provideStoreConfig,
		store.NewSqliteStore,
		provideRun,

		report.NewGenerator,
		controllers.NewDashboardController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
