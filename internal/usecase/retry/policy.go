// Package retry runs remote batch commits with a fixed attempt budget and a
// fixed delay between attempts.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/entity"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy retries every failure the same way, whatever its cause.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Sleep    SleepFunc
	Logger   logrus.FieldLogger
}

func NewPolicy(attempts int, delay time.Duration, logger logrus.FieldLogger) Policy {
	return Policy{Attempts: attempts, Delay: delay, Logger: logger}
}

// Do calls fn until it succeeds or the attempt budget is spent. The final
// error wraps entity.ErrSyncFailed and the last failure. Validation errors
// are returned at once without retrying.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := p.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if entity.IsValidationError(lastErr) {
			return lastErr
		}
		log := logger.WithFields(logrus.Fields{"op": op, "attempt": attempt, "max_attempts": attempts})
		if attempt == attempts {
			log.WithError(lastErr).Error("commit failed, retries exhausted")
			break
		}
		log.WithError(lastErr).Warn("commit failed, retrying")
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", entity.ErrSyncFailed, op, attempts, lastErr)
}

// Sleep waits for d honoring ctx cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
