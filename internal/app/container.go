package app

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/moyogo/clld/internal/infrastructure/config"
	"github.com/moyogo/clld/internal/repository"
	"github.com/moyogo/clld/internal/usecase/enrich"
	"github.com/moyogo/clld/internal/usecase/load"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *gorm.DB
	Loader *load.Loader
	GBS    *enrich.Service
}

func provideGBSService(cfg *config.Config, sources repository.SourceRepository, logger *logrus.Logger) *enrich.Service {
	return enrich.NewService(sources, logger, cfg.GBS.CacheDir, cfg.GBS.APIKey)
}
