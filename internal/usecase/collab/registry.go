package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// ListenerKind names what a listener watches.
type ListenerKind string

const (
	KindDictionaries  ListenerKind = "dictionaries"
	KindCollaborators ListenerKind = "collaborators"
	KindWords         ListenerKind = "words"
)

// ListenerKey identifies one logical subscription. The membership listener
// has an empty DictionaryID.
type ListenerKey struct {
	DictionaryID string
	Kind         ListenerKind
}

func (k ListenerKey) String() string {
	if k.DictionaryID == "" {
		return string(k.Kind)
	}
	return k.DictionaryID + "/" + string(k.Kind)
}

// AliveFunc reports whether the registration that produced an event is still
// the active one for its key.
type AliveFunc func() bool

// ListenerFactory opens the subscription for a key. Events must be checked
// with alive before they are applied.
type ListenerFactory func(alive AliveFunc) (repository.Subscription, error)

type registration struct {
	generation uint64
	sub        repository.Subscription
}

// dictionaryRecord is the cached state kept per dictionary.
type dictionaryRecord struct {
	collaborators []entity.Collaborator
	loaded        bool
	lastEmission  time.Time
	pending       *time.Timer
}

// Registry owns listener lifecycles and the per-dictionary cache. The two
// are guarded by independent mutexes.
type Registry struct {
	logger logrus.FieldLogger
	clock  func() time.Time

	subMu      sync.Mutex
	active     map[ListenerKey]*registration
	desired    map[ListenerKey]ListenerFactory
	paused     bool
	generation uint64

	cacheMu sync.Mutex
	cache   map[string]*dictionaryRecord
}

func NewRegistry(logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		logger:  logger,
		clock:   time.Now,
		active:  make(map[ListenerKey]*registration),
		desired: make(map[ListenerKey]ListenerFactory),
		cache:   make(map[string]*dictionaryRecord),
	}
}

// Register opens a subscription for key unless one is already active. While
// paused the factory is remembered and opened on Resume.
func (r *Registry) Register(key ListenerKey, factory ListenerFactory) error {
	if factory == nil {
		return fmt.Errorf("%w: listener factory is required", entity.ErrInvalidInput)
	}
	r.subMu.Lock()
	if _, ok := r.active[key]; ok {
		r.subMu.Unlock()
		return nil
	}
	r.desired[key] = factory
	if r.paused {
		r.subMu.Unlock()
		return nil
	}
	reg := r.reserveLocked(key)
	r.subMu.Unlock()

	return r.open(key, reg, factory)
}

func (r *Registry) reserveLocked(key ListenerKey) *registration {
	r.generation++
	reg := &registration{generation: r.generation}
	r.active[key] = reg
	return reg
}

// open runs the factory outside the lock. A Stop that lands while the
// factory runs wins and the new subscription is closed again.
func (r *Registry) open(key ListenerKey, reg *registration, factory ListenerFactory) error {
	sub, err := factory(r.aliveFunc(key, reg))

	r.subMu.Lock()
	current := r.active[key] == reg
	if err != nil {
		if current {
			delete(r.active, key)
		}
		r.subMu.Unlock()
		return fmt.Errorf("register %s: %w", key, err)
	}
	if current {
		reg.sub = sub
	}
	r.subMu.Unlock()

	if !current {
		sub.Stop()
		return nil
	}
	r.logger.WithField("listener", key.String()).Debug("listener registered")
	return nil
}

func (r *Registry) aliveFunc(key ListenerKey, reg *registration) AliveFunc {
	return func() bool {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		return r.active[key] == reg
	}
}

// Active reports whether a subscription for key is open.
func (r *Registry) Active(key ListenerKey) bool {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	_, ok := r.active[key]
	return ok
}

// Keys lists the open subscriptions.
func (r *Registry) Keys() []ListenerKey {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	keys := make([]ListenerKey, 0, len(r.active))
	for key := range r.active {
		keys = append(keys, key)
	}
	return keys
}

// Stop closes and forgets the subscription for key. Events already in
// flight fail their liveness check from this point on.
func (r *Registry) Stop(key ListenerKey) {
	r.subMu.Lock()
	reg := r.active[key]
	delete(r.active, key)
	delete(r.desired, key)
	r.subMu.Unlock()

	stopRegistration(reg)
}

// StopDictionary stops every listener of a dictionary and drops its cache
// record.
func (r *Registry) StopDictionary(dictionaryID string) {
	r.Stop(ListenerKey{DictionaryID: dictionaryID, Kind: KindWords})
	r.Stop(ListenerKey{DictionaryID: dictionaryID, Kind: KindCollaborators})
	r.ClearDictionary(dictionaryID)
}

// StopAll closes every subscription and forgets all of them.
func (r *Registry) StopAll() {
	r.subMu.Lock()
	regs := r.active
	r.active = make(map[ListenerKey]*registration)
	r.desired = make(map[ListenerKey]ListenerFactory)
	r.subMu.Unlock()

	for _, reg := range regs {
		stopRegistration(reg)
	}
}

// Pause closes every subscription but remembers which ones should exist.
func (r *Registry) Pause() {
	r.subMu.Lock()
	r.paused = true
	regs := r.active
	r.active = make(map[ListenerKey]*registration)
	r.subMu.Unlock()

	for _, reg := range regs {
		stopRegistration(reg)
	}
}

// Resume reopens every remembered subscription.
func (r *Registry) Resume() error {
	r.subMu.Lock()
	r.paused = false
	type pendingOpen struct {
		key     ListenerKey
		reg     *registration
		factory ListenerFactory
	}
	var opens []pendingOpen
	for key, factory := range r.desired {
		if _, ok := r.active[key]; ok {
			continue
		}
		opens = append(opens, pendingOpen{key: key, reg: r.reserveLocked(key), factory: factory})
	}
	r.subMu.Unlock()

	var errs []error
	for _, o := range opens {
		if err := r.open(o.key, o.reg, o.factory); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stopRegistration(reg *registration) {
	if reg != nil && reg.sub != nil {
		reg.sub.Stop()
	}
}

// CachedCollaborators returns the cached collaborator list of a dictionary.
func (r *Registry) CachedCollaborators(dictionaryID string) ([]entity.Collaborator, bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	rec := r.cache[dictionaryID]
	if rec == nil || !rec.loaded {
		return nil, false
	}
	return cloneCollaborators(rec.collaborators), true
}

// SetCollaboratorsIfAbsent fills the cache unless a newer value is already
// there, and returns the cached list.
func (r *Registry) SetCollaboratorsIfAbsent(dictionaryID string, collaborators []entity.Collaborator) []entity.Collaborator {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	rec := r.recordLocked(dictionaryID)
	if !rec.loaded {
		rec.collaborators = cloneCollaborators(collaborators)
		rec.loaded = true
	}
	return cloneCollaborators(rec.collaborators)
}

// InvalidateCollaborators forces the next read to go to the network.
func (r *Registry) InvalidateCollaborators(dictionaryID string) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if rec := r.cache[dictionaryID]; rec != nil {
		rec.collaborators = nil
		rec.loaded = false
	}
}

// ClearDictionary drops the cache record and cancels a pending emission.
func (r *Registry) ClearDictionary(dictionaryID string) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if rec := r.cache[dictionaryID]; rec != nil {
		if rec.pending != nil {
			rec.pending.Stop()
		}
		delete(r.cache, dictionaryID)
	}
}

// ClearCache drops every cache record.
func (r *Registry) ClearCache() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	for id, rec := range r.cache {
		if rec.pending != nil {
			rec.pending.Stop()
		}
		delete(r.cache, id)
	}
}

// LastEmission reports when collaborators of a dictionary were last emitted.
func (r *Registry) LastEmission(dictionaryID string) time.Time {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if rec := r.cache[dictionaryID]; rec != nil {
		return rec.lastEmission
	}
	return time.Time{}
}

// ApplyCollaboratorsSnapshot caches collaborators and arms a trailing
// emission timer unless one is already pending. When it fires, emit receives
// the cached collaborators as they are at that moment, so a burst of updates
// yields one emission with the latest data. Nothing is recorded once alive
// reports the listener stopped, so a late snapshot cannot resurrect a
// cleared record. It reports whether the snapshot was applied.
func (r *Registry) ApplyCollaboratorsSnapshot(dictionaryID string, collaborators []entity.Collaborator, alive AliveFunc, delay time.Duration, emit func([]entity.Collaborator)) bool {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if alive != nil && !alive() {
		return false
	}
	rec := r.recordLocked(dictionaryID)
	rec.collaborators = cloneCollaborators(collaborators)
	rec.loaded = true
	r.armLocked(dictionaryID, rec, delay, emit)
	return true
}

func (r *Registry) armLocked(dictionaryID string, rec *dictionaryRecord, delay time.Duration, emit func([]entity.Collaborator)) {
	if rec.pending != nil {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.cacheMu.Lock()
		current := r.cache[dictionaryID]
		if current == nil || current.pending != timer {
			r.cacheMu.Unlock()
			return
		}
		current.pending = nil
		current.lastEmission = r.clock()
		collaborators := cloneCollaborators(current.collaborators)
		r.cacheMu.Unlock()

		emit(collaborators)
	})
	rec.pending = timer
}

func (r *Registry) recordLocked(dictionaryID string) *dictionaryRecord {
	rec := r.cache[dictionaryID]
	if rec == nil {
		rec = &dictionaryRecord{}
		r.cache[dictionaryID] = rec
	}
	return rec
}

func cloneCollaborators(in []entity.Collaborator) []entity.Collaborator {
	if in == nil {
		return nil
	}
	return append([]entity.Collaborator(nil), in...)
}
