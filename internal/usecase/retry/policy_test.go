package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/entity"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestPolicySucceedsOnThirdAttempt(t *testing.T) {
	rs := &recordingSleep{}
	p := Policy{Attempts: 3, Delay: 250 * time.Millisecond, Sleep: rs.sleep, Logger: quietLogger()}

	calls := 0
	err := p.Do(context.Background(), "commit", func(context.Context) error {
		calls++
		if calls < 3 {
			return entity.ErrNetwork
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(rs.delays) != 2 || rs.delays[0] != 250*time.Millisecond || rs.delays[1] != 250*time.Millisecond {
		t.Fatalf("expected two fixed delays, got %v", rs.delays)
	}
}

func TestPolicyExhaustedWrapsSyncFailed(t *testing.T) {
	rs := &recordingSleep{}
	p := Policy{Attempts: 3, Delay: time.Second, Sleep: rs.sleep, Logger: quietLogger()}

	calls := 0
	cause := errors.New("permission denied by backend")
	err := p.Do(context.Background(), "commit", func(context.Context) error {
		calls++
		return cause
	})
	if !errors.Is(err, entity.ErrSyncFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected sync failed wrapping cause, got %v", err)
	}
	if calls != 3 || len(rs.delays) != 2 {
		t.Fatalf("expected 3 calls and 2 sleeps, got %d and %d", calls, len(rs.delays))
	}
}

func TestPolicyStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Delay: time.Hour, Logger: quietLogger()}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "commit", func(context.Context) error {
			calls++
			return entity.ErrNetwork
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("retry did not observe cancellation")
	}
}

func TestPolicyDefaults(t *testing.T) {
	calls := 0
	p := Policy{Sleep: func(context.Context, time.Duration) error { return nil }, Logger: quietLogger()}
	_ = p.Do(context.Background(), "commit", func(context.Context) error {
		calls++
		return entity.ErrNetwork
	})
	if calls != DefaultAttempts {
		t.Fatalf("expected %d attempts, got %d", DefaultAttempts, calls)
	}
}

func TestPolicyDoesNotRetryValidationErrors(t *testing.T) {
	rs := &recordingSleep{}
	p := Policy{Attempts: 3, Delay: time.Second, Sleep: rs.sleep, Logger: quietLogger()}

	for _, sentinel := range []error{entity.ErrInvalidInput, entity.ErrPermissionDenied, entity.ErrWordNotFound} {
		calls := 0
		err := p.Do(context.Background(), "commit", func(context.Context) error {
			calls++
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected %v, got %v", sentinel, err)
		}
		if errors.Is(err, entity.ErrSyncFailed) {
			t.Fatalf("validation error must not be reported as a sync failure: %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected a single attempt for %v, got %d", sentinel, calls)
		}
	}
	if len(rs.delays) != 0 {
		t.Fatalf("expected no delays, got %v", rs.delays)
	}
}
