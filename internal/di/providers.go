package di

import (
	"rewind/internal/models"
	"rewind/internal/store"
	"rewind/internal/structures"
)

func provideStoreConfig(conf *structures.Config) *structures.StoreConfig {
	return &conf.Store
}

// provideRun loads the run the server exposes: the most recently
// committed one.
func provideRun(s store.StoreInterface) (*models.AnalysisRun, error) {
	return s.LatestRun()
}
