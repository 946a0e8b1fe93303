package logging

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
)

// NewLogger builds a configured logrus logger from application config.
func NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

// PgxTracer routes pgx query tracing into logger.
func PgxTracer(logger logrus.FieldLogger) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger: tracelog.LoggerFunc(func(_ context.Context, lvl tracelog.LogLevel, msg string, data map[string]any) {
			entry := logger.WithFields(logrus.Fields(data)).WithField("component", "pgx")
			switch lvl {
			case tracelog.LogLevelError:
				entry.Error(msg)
			case tracelog.LogLevelWarn:
				entry.Warn(msg)
			case tracelog.LogLevelInfo:
				entry.Info(msg)
			default:
				entry.Debug(msg)
			}
		}),
		LogLevel: tracelog.LogLevelTrace,
	}
}
