package docstore

import (
	"context"
	"sync"
)

// notifyHub fans collection change notifications out to subscribers. Each
// subscriber refreshes on its own goroutine and holds no connection while
// idle. Wakes that arrive during a refresh collapse into one more refresh.
type notifyHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*hubSubscription
}

func newNotifyHub() *notifyHub {
	return &notifyHub{subs: make(map[string]map[uint64]*hubSubscription)}
}

// subscribe registers refresh for collection and schedules an initial run.
// The subscription ends when ctx is done or Stop is called.
func (h *notifyHub) subscribe(ctx context.Context, collection string, refresh func(ctx context.Context)) *hubSubscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &hubSubscription{
		hub:        h,
		collection: collection,
		refresh:    refresh,
		wake:       make(chan struct{}, 1),
		ctx:        subCtx,
		cancel:     cancel,
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*hubSubscription)
	}
	h.subs[collection][sub.id] = sub
	h.mu.Unlock()

	sub.signal()
	go sub.run()
	return sub
}

// notify wakes every subscriber of collection.
func (h *notifyHub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[collection] {
		sub.signal()
	}
}

// notifyAll wakes every subscriber, used after the listen connection was
// re-established and notifications may have been missed.
func (h *notifyHub) notifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subs {
		for _, sub := range subs {
			sub.signal()
		}
	}
}

func (h *notifyHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}

func (h *notifyHub) remove(sub *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subs[sub.collection]; subs != nil {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.subs, sub.collection)
		}
	}
}

type hubSubscription struct {
	hub        *notifyHub
	id         uint64
	collection string
	refresh    func(ctx context.Context)
	wake       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *hubSubscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *hubSubscription) run() {
	defer s.hub.remove(s)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		if s.ctx.Err() != nil {
			return
		}
		s.refresh(s.ctx)
	}
}

// Stop ends the subscription. A refresh already running may still reach
// the handler.
func (s *hubSubscription) Stop() {
	s.hub.remove(s)
	s.cancel()
}
