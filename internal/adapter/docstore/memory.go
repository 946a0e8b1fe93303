package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// CommitHook is consulted before every batch commit with the 1-based
// attempt number. A non-nil error fails the commit without applying it.
type CommitHook func(attempt int, ops int) error

type MemoryOption func(*MemoryStore)

// WithCommitHook installs a hook that can fail batch commits.
func WithCommitHook(hook CommitHook) MemoryOption {
	return func(s *MemoryStore) {
		s.commitHook = hook
	}
}

// WithMaxBatchWrites overrides the per-batch operation limit.
func WithMaxBatchWrites(limit int) MemoryOption {
	return func(s *MemoryStore) {
		if limit > 0 {
			s.maxBatch = limit
		}
	}
}

// MemoryStore is an in-process DocumentStore. Documents are stored as JSON
// round-tripped copies so readers see the same value shapes a networked
// backend would return.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	subs        map[string]map[uint64]*memorySubscription
	nextSubID   uint64

	maxBatch       int
	commitHook     CommitHook
	commitAttempts int
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[string]map[uint64]*memorySubscription),
		maxBatch:    repository.MaxBatchWrites,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommitAttempts reports how many batch commits were attempted.
func (s *MemoryStore) CommitAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitAttempts
}

// SetCommitHook replaces the commit hook.
func (s *MemoryStore) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

func (s *MemoryStore) Get(_ context.Context, path string) (*repository.Document, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrDocumentNotFound, path)
	}
	return &repository.Document{ID: id, Path: path, Data: cloneData(data)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data map[string]any) error {
	b := s.Batch()
	b.Set(path, data)
	return s.apply(b.(*memoryBatch).ops)
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	b := s.Batch()
	b.Update(path, fields)
	return s.apply(b.(*memoryBatch).ops)
}

func (s *MemoryStore) UpdateMapEntry(ctx context.Context, path, field, key string, value any) error {
	return s.apply([]writeOp{newEntryOp(path, field, key, value)})
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	b := s.Batch()
	b.Delete(path)
	return s.apply(b.(*memoryBatch).ops)
}

func (s *MemoryStore) ListIDs(_ context.Context, collection string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.collections[collection]), nil
}

func (s *MemoryStore) Query(_ context.Context, collection, after string, limit int) ([]repository.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: query limit must be positive", entity.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	out := make([]repository.Document, 0, limit)
	for _, id := range sortedIDs(docs) {
		if after != "" && id <= after {
			continue
		}
		out = append(out, repository.Document{
			ID:   id,
			Path: repository.DocumentPath(collection, id),
			Data: cloneData(docs[id]),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Batch() repository.WriteBatch {
	return &memoryBatch{store: s}
}

func (s *MemoryStore) Listen(ctx context.Context, collection string, handler repository.SnapshotHandler) (repository.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: listener handler is required", entity.ErrInvalidInput)
	}
	sub := &memorySubscription{
		store:      s,
		collection: collection,
		handler:    handler,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	s.nextSubID++
	sub.id = s.nextSubID
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[uint64]*memorySubscription)
	}
	s.subs[collection][sub.id] = sub
	sub.push(s.snapshotLocked(collection))
	s.mu.Unlock()

	go sub.run()
	go func() {
		select {
		case <-ctx.Done():
			sub.Stop()
		case <-sub.done:
		}
	}()
	return sub, nil
}

type opKind int

const (
	opSet opKind = iota + 1
	opUpdate
	opUpdateEntry
	opDelete
)

type writeOp struct {
	kind       opKind
	path       string
	collection string
	id         string
	data       map[string]any
	err        error

	// opUpdateEntry only
	field string
	key   string
	value any
	raw   []byte
}

func newWriteOp(kind opKind, path string, data map[string]any) writeOp {
	op := writeOp{kind: kind, path: path}
	op.collection, op.id, op.err = splitPath(path)
	if op.err == nil && data != nil {
		op.data, op.err = normalizeData(data)
	}
	return op
}

func newEntryOp(path, field, key string, value any) writeOp {
	op := writeOp{kind: opUpdateEntry, path: path, field: field, key: key}
	op.collection, op.id, op.err = splitPath(path)
	if op.err != nil {
		return op
	}
	if field == "" || key == "" {
		op.err = fmt.Errorf("%w: map field and key are required", entity.ErrInvalidInput)
		return op
	}
	op.raw, op.value, op.err = normalizeValue(value)
	return op
}

type memoryBatch struct {
	store *MemoryStore
	ops   []writeOp
}

func (b *memoryBatch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, newWriteOp(opSet, path, data))
}

func (b *memoryBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, newWriteOp(opUpdate, path, fields))
}

func (b *memoryBatch) Delete(path string) {
	b.ops = append(b.ops, newWriteOp(opDelete, path, nil))
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := b.store
	s.mu.Lock()
	s.commitAttempts++
	attempt, hook := s.commitAttempts, s.commitHook
	s.mu.Unlock()

	if len(b.ops) > s.maxBatch {
		return fmt.Errorf("%w: %d operations, limit %d", repository.ErrBatchTooLarge, len(b.ops), s.maxBatch)
	}
	if hook != nil {
		if err := hook(attempt, len(b.ops)); err != nil {
			return err
		}
	}
	return s.apply(b.ops)
}

// apply validates and applies ops atomically, then notifies listeners of
// every touched collection.
func (s *MemoryStore) apply(ops []writeOp) error {
	for _, op := range ops {
		if op.err != nil {
			return op.err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists := make(map[string]bool, len(ops))
	for _, op := range ops {
		present, seen := exists[op.path]
		if !seen {
			_, present = s.collections[op.collection][op.id]
		}
		switch op.kind {
		case opSet, opUpdate, opUpdateEntry:
			if op.kind != opSet && !present {
				return fmt.Errorf("%w: %s", repository.ErrDocumentNotFound, op.path)
			}
			exists[op.path] = true
		case opDelete:
			exists[op.path] = false
		}
	}

	touched := make([]string, 0, len(ops))
	for _, op := range ops {
		docs := s.collections[op.collection]
		if docs == nil {
			docs = make(map[string]map[string]any)
			s.collections[op.collection] = docs
		}
		switch op.kind {
		case opSet:
			docs[op.id] = cloneData(op.data)
		case opUpdate:
			merged := cloneData(docs[op.id])
			for k, v := range op.data {
				merged[k] = v
			}
			docs[op.id] = merged
		case opUpdateEntry:
			merged := cloneData(docs[op.id])
			entries, ok := merged[op.field].(map[string]any)
			if !ok {
				entries = map[string]any{}
			}
			entries[op.key] = cloneValue(op.value)
			merged[op.field] = entries
			docs[op.id] = merged
		case opDelete:
			delete(docs, op.id)
		}
		touched = append(touched, op.collection)
	}

	for _, collection := range lo.Uniq(touched) {
		subs := s.subs[collection]
		if len(subs) == 0 {
			continue
		}
		snapshot := s.snapshotLocked(collection)
		for _, sub := range subs {
			sub.push(snapshot)
		}
	}
	return nil
}

func (s *MemoryStore) snapshotLocked(collection string) repository.Snapshot {
	docs := s.collections[collection]
	out := repository.Snapshot{Collection: collection, Documents: make([]repository.Document, 0, len(docs))}
	for _, id := range sortedIDs(docs) {
		out.Documents = append(out.Documents, repository.Document{
			ID:   id,
			Path: repository.DocumentPath(collection, id),
			Data: cloneData(docs[id]),
		})
	}
	return out
}

func (s *MemoryStore) removeSubscription(sub *memorySubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs := s.subs[sub.collection]; subs != nil {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(s.subs, sub.collection)
		}
	}
}

// memorySubscription delivers snapshots in order on its own goroutine.
type memorySubscription struct {
	store      *MemoryStore
	id         uint64
	collection string
	handler    repository.SnapshotHandler

	mu    sync.Mutex
	queue []repository.Snapshot
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func (s *memorySubscription) push(snapshot repository.Snapshot) {
	s.mu.Lock()
	s.queue = append(s.queue, snapshot)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.handler(next, nil)
		}
	}
}

func (s *memorySubscription) Stop() {
	s.once.Do(func() {
		s.store.removeSubscription(s)
		close(s.done)
	})
}

func splitPath(path string) (string, string, error) {
	collection, id, ok := repository.SplitDocumentPath(path)
	if !ok {
		return "", "", fmt.Errorf("%w: invalid document path %q", entity.ErrInvalidInput, path)
	}
	return collection, id, nil
}

func sortedIDs(docs map[string]map[string]any) []string {
	ids := lo.Keys(docs)
	sort.Strings(ids)
	return ids
}

func normalizeData(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %w", entity.ErrInvalidInput, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode document: %w", entity.ErrInvalidInput, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// normalizeValue returns the JSON encoding of v and v as decoded from it.
func normalizeValue(v any) ([]byte, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode value: %w", entity.ErrInvalidInput, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("%w: decode value: %w", entity.ErrInvalidInput, err)
	}
	return raw, out, nil
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return t
	}
}
