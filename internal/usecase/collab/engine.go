// Package collab keeps shared dictionaries in sync between collaborators.
//
// Remote listener callbacks arrive on background goroutines. They may do
// I/O, but every change to observer-visible state is applied on one
// Dispatcher goroutine and then published as an immutable snapshot.
package collab

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
	"github.com/eslsoft/vocsync/internal/usecase/retry"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultRefreshDelay = 500 * time.Millisecond
	defaultPageSize     = 1000
)

// Observer is notified on the dispatcher goroutine. Implementations must
// not block.
type Observer interface {
	DictionariesChanged(dictionaries []entity.SharedDictionary)
	CollaboratorsChanged(dictionaryID string, collaborators []entity.Collaborator)
	WordsChanged(dictionaryID string, words []entity.SharedWord)
}

// state is an immutable published view.
type state struct {
	dictionaries []entity.SharedDictionary
	words        map[string][]entity.SharedWord
}

type Option func(*Engine)

// WithDebounce sets the collaborator emission interval.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WithRefreshDelay sets how long RemoveCollaborator waits before refreshing
// the visible dictionaries.
func WithRefreshDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.refreshDelay = d
		}
	}
}

func WithPageSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.pageSize = size
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// Engine is the collaboration sync engine.
type Engine struct {
	store       repository.DocumentStore
	identity    repository.IdentityProvider
	entitlement repository.Entitlement
	registry    *Registry
	dispatcher  *Dispatcher
	logger      logrus.FieldLogger
	retry       retry.Policy
	loads       singleflight.Group

	debounce     time.Duration
	refreshDelay time.Duration
	pageSize     int
	clock        func() time.Time
	newID        func() string

	ctx    context.Context
	cancel context.CancelFunc

	published atomic.Pointer[state]

	// owned by the dispatcher goroutine
	dictionaries map[string]entity.SharedDictionary
	words        map[string][]entity.SharedWord
	observers    map[uint64]Observer
	nextObserver uint64
}

func NewEngine(store repository.DocumentStore, identity repository.IdentityProvider, entitlement repository.Entitlement, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		identity:     identity,
		entitlement:  entitlement,
		dispatcher:   NewDispatcher(),
		logger:       logrus.StandardLogger(),
		retry:        retry.Policy{Attempts: retry.DefaultAttempts, Delay: retry.DefaultDelay},
		debounce:     DefaultDebounce,
		refreshDelay: DefaultRefreshDelay,
		pageSize:     defaultPageSize,
		clock:        time.Now,
		newID:        uuid.NewString,
		dictionaries: make(map[string]entity.SharedDictionary),
		words:        make(map[string][]entity.SharedWord),
		observers:    make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "collab")
	if e.retry.Logger == nil {
		e.retry.Logger = e.logger
	}
	e.registry = NewRegistry(e.logger)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.published.Store(&state{words: map[string][]entity.SharedWord{}})
	return e
}

// Registry exposes the listener registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Subscribe adds an observer and returns a function that removes it.
func (e *Engine) Subscribe(observer Observer) func() {
	var id uint64
	_ = e.dispatcher.Run(context.Background(), func() {
		e.nextObserver++
		id = e.nextObserver
		e.observers[id] = observer
	})
	return func() {
		e.dispatcher.Dispatch(func() {
			delete(e.observers, id)
		})
	}
}

// Dictionaries returns the visible dictionaries, newest first.
func (e *Engine) Dictionaries() []entity.SharedDictionary {
	current := e.published.Load()
	out := make([]entity.SharedDictionary, 0, len(current.dictionaries))
	for _, d := range current.dictionaries {
		out = append(out, d.Clone())
	}
	return out
}

// Dictionary returns one visible dictionary.
func (e *Engine) Dictionary(id string) (entity.SharedDictionary, bool) {
	for _, d := range e.published.Load().dictionaries {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return entity.SharedDictionary{}, false
}

// Words returns the last known words of a dictionary.
func (e *Engine) Words(dictionaryID string) []entity.SharedWord {
	words := e.published.Load().words[dictionaryID]
	out := make([]entity.SharedWord, 0, len(words))
	for _, w := range words {
		out = append(out, w.Clone())
	}
	return out
}

// Flush waits until every state change queued so far has been applied.
func (e *Engine) Flush(ctx context.Context) error {
	return e.dispatcher.Flush(ctx)
}

// Start opens the membership listener on the dictionaries collection.
func (e *Engine) Start() error {
	key := ListenerKey{Kind: KindDictionaries}
	return e.registry.Register(key, func(alive AliveFunc) (repository.Subscription, error) {
		return e.store.Listen(e.ctx, repository.DictionariesCollection, func(snap repository.Snapshot, err error) {
			if err != nil {
				e.logger.WithError(err).Warn("dictionaries listener delivery failed")
				return
			}
			if !alive() {
				return
			}
			e.applyMembership(e.ctx, snap.Documents, alive)
		})
	})
}

// Pause closes every network listener. State and cache are kept.
func (e *Engine) Pause() {
	e.registry.Pause()
}

// Resume reopens the listeners that were active before Pause.
func (e *Engine) Resume() error {
	return e.registry.Resume()
}

// Close stops all listeners and the dispatcher.
func (e *Engine) Close() {
	e.registry.StopAll()
	e.registry.ClearCache()
	e.cancel()
	e.dispatcher.Close()
}

// publishState stores a new immutable view. Dispatcher only.
func (e *Engine) publishState() {
	dicts := make([]entity.SharedDictionary, 0, len(e.dictionaries))
	for _, d := range e.dictionaries {
		dicts = append(dicts, d.Clone())
	}
	sortDictionaries(dicts)
	words := make(map[string][]entity.SharedWord, len(e.words))
	for id, list := range e.words {
		words[id] = list
	}
	e.published.Store(&state{dictionaries: dicts, words: words})
}

func (e *Engine) notifyDictionaries() {
	dicts := e.published.Load().dictionaries
	for _, o := range e.observers {
		o.DictionariesChanged(cloneDictionaries(dicts))
	}
}

func (e *Engine) notifyCollaborators(dictionaryID string, collaborators []entity.Collaborator) {
	for _, o := range e.observers {
		o.CollaboratorsChanged(dictionaryID, cloneCollaborators(collaborators))
	}
}

func (e *Engine) notifyWords(dictionaryID string) {
	words := e.published.Load().words[dictionaryID]
	for _, o := range e.observers {
		out := make([]entity.SharedWord, 0, len(words))
		for _, w := range words {
			out = append(out, w.Clone())
		}
		o.WordsChanged(dictionaryID, out)
	}
}

func cloneDictionaries(in []entity.SharedDictionary) []entity.SharedDictionary {
	out := make([]entity.SharedDictionary, 0, len(in))
	for _, d := range in {
		out = append(out, d.Clone())
	}
	return out
}

// currentUser returns the signed-in user id and normalized email.
func (e *Engine) currentUser() (string, string, error) {
	if e.identity == nil {
		return "", "", entity.ErrUserNotAuthenticated
	}
	id, okID := e.identity.CurrentUserID()
	email, okEmail := e.identity.CurrentUserEmail()
	if !okID || id == "" {
		return "", "", entity.ErrUserNotAuthenticated
	}
	if !okEmail {
		email = ""
	}
	return id, entity.NormalizeEmail(email), nil
}

func isClosed(err error) bool {
	return errors.Is(err, ErrDispatcherClosed) || errors.Is(err, context.Canceled)
}
