package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Log         LogConfig         `mapstructure:"log"`
}

// DatabaseConfig holds the local store configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	LogSQL bool   `mapstructure:"log_sql"`
}

// RemoteConfig holds the document store configuration
type RemoteConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// SyncConfig tunes the backup and collaboration engines
type SyncConfig struct {
	WriteBatchSize int           `mapstructure:"write_batch_size"`
	PageSize       int           `mapstructure:"page_size"`
	MergeChunkSize int           `mapstructure:"merge_chunk_size"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Concurrency    int           `mapstructure:"concurrency"`
	Debounce       time.Duration `mapstructure:"debounce"`
	RefreshDelay   time.Duration `mapstructure:"refresh_delay"`
}

// IdentityConfig describes who the current user is. A token takes
// precedence over the static fields.
type IdentityConfig struct {
	Token       string `mapstructure:"token"`
	SigningKey  string `mapstructure:"signing_key"`
	UserID      string `mapstructure:"user_id"`
	Email       string `mapstructure:"email"`
	DisplayName string `mapstructure:"display_name"`
}

// EntitlementConfig holds capability limits. Zero means unlimited.
type EntitlementConfig struct {
	MaxSharedDictionaries int `mapstructure:"max_shared_dictionaries"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults(viper.GetViper())

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(viper.GetViper())
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	if config.Database.Driver == "postgresql" {
		config.Database.Driver = "postgres"
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Local store defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "file:vocsync.db?_fk=1")
	v.SetDefault("database.log_sql", false)

	// Remote store defaults
	v.SetDefault("remote.dsn", "memory://")
	v.SetDefault("remote.max_conns", 10)
	v.SetDefault("remote.log_sql", false)

	// Sync defaults
	v.SetDefault("sync.write_batch_size", 500)
	v.SetDefault("sync.page_size", 1000)
	v.SetDefault("sync.merge_chunk_size", 100)
	v.SetDefault("sync.retry_attempts", 3)
	v.SetDefault("sync.retry_delay", time.Second)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.debounce", 500*time.Millisecond)
	v.SetDefault("sync.refresh_delay", 500*time.Millisecond)

	// Identity defaults
	v.SetDefault("identity.token", "")
	v.SetDefault("identity.signing_key", "")
	v.SetDefault("identity.user_id", "")
	v.SetDefault("identity.email", "")
	v.SetDefault("identity.display_name", "")

	v.SetDefault("entitlement.max_shared_dictionaries", 3)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// DatabaseDriver returns the normalized local database driver name.
func (c *Config) DatabaseDriver() string {
	return c.Database.Driver
}

// DatabaseURL returns the local database DSN.
func (c *Config) DatabaseURL() string {
	return strings.TrimSpace(c.Database.DSN)
}

// RemoteURL returns the document store DSN.
func (c *Config) RemoteURL() string {
	return strings.TrimSpace(c.Remote.DSN)
}
