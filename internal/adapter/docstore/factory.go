package docstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/database"
	"github.com/eslsoft/vocsync/internal/repository"
)

// BuildFromConfig selects the document store implementation by the scheme
// of the configured remote DSN.
func BuildFromConfig(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (repository.DocumentStore, func(), error) {
	dsn := cfg.RemoteURL()
	if dsn == "" {
		return nil, nil, fmt.Errorf("remote dsn is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse remote dsn: %w", err)
	}
	switch scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme)); scheme {
	case "memory", "mem", "inmem":
		return NewMemoryStore(), func() {}, nil
	case "postgres", "postgresql":
		pool, cleanup, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(pool, logger)
		return store, func() {
			store.Close()
			cleanup()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported remote store scheme: %s", scheme)
	}
}
