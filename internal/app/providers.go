package app

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/adapter/repository"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/entitlement"
	"github.com/eslsoft/vocsync/internal/infrastructure/identity"
	domain "github.com/eslsoft/vocsync/internal/repository"
	"github.com/eslsoft/vocsync/internal/usecase/backup"
	"github.com/eslsoft/vocsync/internal/usecase/collab"
	"github.com/eslsoft/vocsync/internal/usecase/retry"
)

func provideFieldLogger(logger *logrus.Logger) logrus.FieldLogger {
	return logger
}

func provideWordStore(db *sql.DB, cfg *config.Config) domain.LocalWordRepository {
	return repository.NewWordStore(db, cfg.DatabaseDriver())
}

func provideRetryPolicy(cfg *config.Config, logger logrus.FieldLogger) retry.Policy {
	return retry.NewPolicy(cfg.Sync.RetryAttempts, cfg.Sync.RetryDelay, logger)
}

func provideIdentity(cfg *config.Config) (domain.IdentityProvider, error) {
	user, err := identity.FromConfig(cfg.Identity)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func provideEntitlement(cfg *config.Config) domain.Entitlement {
	return entitlement.FromConfig(cfg.Entitlement)
}

func provideBackupService(remote domain.DocumentStore, local domain.LocalWordRepository, cfg *config.Config, policy retry.Policy, logger logrus.FieldLogger) *backup.Service {
	return backup.NewService(remote, local,
		backup.WithBatchSize(cfg.Sync.WriteBatchSize),
		backup.WithPageSize(cfg.Sync.PageSize),
		backup.WithMergeChunkSize(cfg.Sync.MergeChunkSize),
		backup.WithConcurrency(cfg.Sync.Concurrency),
		backup.WithRetryPolicy(policy),
		backup.WithLogger(logger),
	)
}

// provideCollabEngine builds the engine without starting it. The cleanup
// closes the engine and every listener it opened.
func provideCollabEngine(store domain.DocumentStore, id domain.IdentityProvider, ent domain.Entitlement, cfg *config.Config, policy retry.Policy, logger logrus.FieldLogger) (*collab.Engine, func()) {
	engine := collab.NewEngine(store, id, ent,
		collab.WithDebounce(cfg.Sync.Debounce),
		collab.WithRefreshDelay(cfg.Sync.RefreshDelay),
		collab.WithPageSize(cfg.Sync.PageSize),
		collab.WithRetryPolicy(policy),
		collab.WithLogger(logger),
	)
	return engine, engine.Close
}
