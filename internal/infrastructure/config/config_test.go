package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.DatabaseDriver() != "sqlite3" {
		t.Fatalf("expected sqlite3 driver, got %q", cfg.DatabaseDriver())
	}
	if cfg.RemoteURL() != "memory://" {
		t.Fatalf("expected memory remote, got %q", cfg.RemoteURL())
	}
	if cfg.Sync.WriteBatchSize != 500 || cfg.Sync.PageSize != 1000 || cfg.Sync.MergeChunkSize != 100 {
		t.Fatalf("unexpected batch sizes: %+v", cfg.Sync)
	}
	if cfg.Sync.RetryAttempts != 3 || cfg.Sync.RetryDelay != time.Second {
		t.Fatalf("unexpected retry policy: %+v", cfg.Sync)
	}
	if cfg.Sync.Debounce != 500*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", cfg.Sync.Debounce)
	}
	if cfg.Entitlement.MaxSharedDictionaries != 3 {
		t.Fatalf("unexpected entitlement: %+v", cfg.Entitlement)
	}
}

func TestDecodeNormalizesDriver(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("database.driver", " PostgreSQL ")
	v.Set("sync.debounce", "250ms")

	cfg, err := decode(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.DatabaseDriver() != "postgres" {
		t.Fatalf("expected postgres, got %q", cfg.DatabaseDriver())
	}
	if cfg.Sync.Debounce != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", cfg.Sync.Debounce)
	}
}
