package repository

import (
	"context"
	"errors"
)

// MaxBatchWrites is the backend limit on operations per atomic batch.
const MaxBatchWrites = 500

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrBatchTooLarge    = errors.New("batch exceeds write limit")
)

// Document is one record in a collection. Data holds JSON-compatible values:
// strings, bools, numbers, []any and map[string]any.
type Document struct {
	ID   string
	Path string
	Data map[string]any
}

// Snapshot is the full view of a collection delivered to a listener.
type Snapshot struct {
	Collection string
	Documents  []Document
}

// SnapshotHandler receives listener deliveries. err is non-nil when the
// backend failed to produce a snapshot; the subscription stays active.
type SnapshotHandler func(snapshot Snapshot, err error)

// Subscription is a cancelable snapshot listener.
type Subscription interface {
	Stop()
}

// WriteBatch collects writes that commit atomically. A batch may be
// committed more than once; each Commit applies the same writes.
type WriteBatch interface {
	Set(path string, data map[string]any)
	Update(path string, fields map[string]any)
	Delete(path string)
	Len() int
	Commit(ctx context.Context) error
}

// DocumentStore is the remote multi-tenant document database.
type DocumentStore interface {
	Get(ctx context.Context, path string) (*Document, error)
	Set(ctx context.Context, path string, data map[string]any) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	// UpdateMapEntry sets key inside the map-valued field of an existing
	// document, creating the map when absent. Other keys are left as they
	// are, so concurrent writers to different keys never overwrite each other.
	UpdateMapEntry(ctx context.Context, path, field, key string, value any) error
	Delete(ctx context.Context, path string) error
	// ListIDs returns every document id in collection.
	ListIDs(ctx context.Context, collection string) ([]string, error)
	// Query returns up to limit documents ordered by id, strictly after the
	// cursor id (empty cursor starts from the beginning).
	Query(ctx context.Context, collection, after string, limit int) ([]Document, error)
	Batch() WriteBatch
	// Listen delivers an initial snapshot and one per change to collection
	// until the subscription is stopped or ctx is done.
	Listen(ctx context.Context, collection string, handler SnapshotHandler) (Subscription, error)
}

// QueryAll pages through collection until a short page is returned.
func QueryAll(ctx context.Context, store DocumentStore, collection string, pageSize int) ([]Document, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	var (
		all    []Document
		cursor string
	)
	for {
		page, err := store.Query(ctx, collection, cursor, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		cursor = page[len(page)-1].ID
	}
}
