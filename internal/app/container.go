package app

import (
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/repository"
	"github.com/eslsoft/vocsync/internal/usecase"
	"github.com/eslsoft/vocsync/internal/usecase/backup"
	"github.com/eslsoft/vocsync/internal/usecase/collab"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Identity repository.IdentityProvider
	Local    repository.LocalWordRepository
	Words    usecase.WordUsecase
	Backup   *backup.Service
	Collab   *collab.Engine
}
