package collab

import (
	"context"
	"errors"
	"sync"
)

// ErrDispatcherClosed is returned when work is submitted after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

const dispatchBuffer = 256

// Dispatcher runs tasks one at a time on a single goroutine. Observer-facing
// state is only touched from its tasks. Tasks must not call Run or Flush.
type Dispatcher struct {
	tasks     chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		tasks:   make(chan func(), dispatchBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		case fn := <-d.tasks:
			fn()
		}
	}
}

// Dispatch queues fn and reports whether it was accepted.
func (d *Dispatcher) Dispatch(fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.tasks <- fn:
		return true
	case <-d.done:
		return false
	}
}

// Run queues fn and waits until it has run.
func (d *Dispatcher) Run(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !d.Dispatch(func() {
		defer close(finished)
		fn()
	}) {
		return ErrDispatcherClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrDispatcherClosed
		}
	}
}

// Flush waits for every task queued before it.
func (d *Dispatcher) Flush(ctx context.Context) error {
	return d.Run(ctx, func() {})
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	<-d.stopped
}
