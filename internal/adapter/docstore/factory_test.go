package docstore

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
)

func TestBuildFromConfigMemory(t *testing.T) {
	cfg := &config.Config{Remote: config.RemoteConfig{DSN: "memory://"}}
	store, cleanup, err := BuildFromConfig(context.Background(), cfg, logrus.New())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}

func TestBuildFromConfigRejectsUnknownScheme(t *testing.T) {
	for _, dsn := range []string{"", "redis://localhost"} {
		cfg := &config.Config{Remote: config.RemoteConfig{DSN: dsn}}
		if _, _, err := BuildFromConfig(context.Background(), cfg, logrus.New()); err == nil {
			t.Fatalf("expected error for %q", dsn)
		}
	}
}
