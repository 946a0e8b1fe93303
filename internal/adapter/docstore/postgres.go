package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

const (
	notifyChannel     = "vocsync_documents"
	listenRetryDelay  = time.Second
	postgresOpTimeout = 10 * time.Second
)

const (
	stmtCreateDocuments = `
		CREATE TABLE IF NOT EXISTS vocsync_documents (
			path TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	stmtCreateCollectionIndex = `
		CREATE INDEX IF NOT EXISTS vocsync_documents_collection_idx
			ON vocsync_documents (collection, doc_id)`
	stmtGetDocument = `SELECT doc_id, data FROM vocsync_documents WHERE path = $1`
	stmtSetDocument = `
		INSERT INTO vocsync_documents (path, collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	stmtUpdateDocument = `
		UPDATE vocsync_documents SET data = data || $2::jsonb, updated_at = NOW()
		WHERE path = $1`
	stmtUpdateMapEntry = `
		UPDATE vocsync_documents
		SET data = jsonb_set(
				CASE WHEN jsonb_typeof(data -> $2::text) = 'object' THEN data
					ELSE jsonb_set(data, ARRAY[$2::text], '{}'::jsonb, true) END,
				ARRAY[$2::text, $3::text], $4::jsonb, true),
			updated_at = NOW()
		WHERE path = $1`
	stmtDeleteDocument = `DELETE FROM vocsync_documents WHERE path = $1`
	stmtListIDs        = `SELECT doc_id FROM vocsync_documents WHERE collection = $1 ORDER BY doc_id`
	stmtQueryPage      = `
		SELECT doc_id, data FROM vocsync_documents
		WHERE collection = $1 AND doc_id > $2
		ORDER BY doc_id
		LIMIT $3`
	stmtNotify = `SELECT pg_notify($1, $2)`
)

// PostgresStore keeps documents in one JSONB table and announces changes
// per collection through LISTEN/NOTIFY. A single dedicated connection
// outside the pool receives notifications for every subscription.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger

	initOnce sync.Once
	initErr  error

	hub        *notifyHub
	listenOnce sync.Once
	listenCtx  context.Context
	stopListen context.CancelFunc
	listenDone chan struct{}
}

func NewPostgresStore(pool *pgxpool.Pool, logger logrus.FieldLogger) *PostgresStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostgresStore{
		pool:       pool,
		logger:     logger.WithField("component", "docstore"),
		hub:        newNotifyHub(),
		listenCtx:  ctx,
		stopListen: cancel,
		listenDone: make(chan struct{}),
	}
}

// Close stops the notification listener and waits for it to exit. The pool
// is owned by the caller.
func (s *PostgresStore) Close() {
	s.stopListen()
	s.listenOnce.Do(func() { close(s.listenDone) })
	<-s.listenDone
}

func (s *PostgresStore) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, postgresOpTimeout)
		defer cancel()
		for _, stmt := range []string{stmtCreateDocuments, stmtCreateCollectionIndex} {
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				s.initErr = wrapNetwork("create documents table", err)
				return
			}
		}
	})
	return s.initErr
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*repository.Document, error) {
	if _, _, err := splitPath(path); err != nil {
		return nil, err
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	doc := repository.Document{Path: path}
	err := s.pool.QueryRow(ctx, stmtGetDocument, path).Scan(&doc.ID, &doc.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrDocumentNotFound, path)
	}
	if err != nil {
		return nil, wrapNetwork("get document", err)
	}
	return &doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, data map[string]any) error {
	b := s.Batch()
	b.Set(path, data)
	return b.Commit(ctx)
}

func (s *PostgresStore) Update(ctx context.Context, path string, fields map[string]any) error {
	b := s.Batch()
	b.Update(path, fields)
	return b.Commit(ctx)
}

func (s *PostgresStore) UpdateMapEntry(ctx context.Context, path, field, key string, value any) error {
	b := &postgresBatch{store: s, ops: []writeOp{newEntryOp(path, field, key, value)}}
	return b.Commit(ctx)
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	b := s.Batch()
	b.Delete(path)
	return b.Commit(ctx)
}

func (s *PostgresStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, stmtListIDs, collection)
	if err != nil {
		return nil, wrapNetwork("list document ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapNetwork("list document ids", err)
	}
	return ids, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection, after string, limit int) ([]repository.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: query limit must be positive", entity.ErrInvalidInput)
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, stmtQueryPage, collection, after, limit)
	if err != nil {
		return nil, wrapNetwork("query documents", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Document, error) {
		doc := repository.Document{}
		if err := row.Scan(&doc.ID, &doc.Data); err != nil {
			return doc, err
		}
		doc.Path = repository.DocumentPath(collection, doc.ID)
		return doc, nil
	})
	if err != nil {
		return nil, wrapNetwork("query documents", err)
	}
	return docs, nil
}

func (s *PostgresStore) Batch() repository.WriteBatch {
	return &postgresBatch{store: s}
}

type postgresBatch struct {
	store *PostgresStore
	ops   []writeOp
}

func (b *postgresBatch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, newWriteOp(opSet, path, data))
}

func (b *postgresBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, newWriteOp(opUpdate, path, fields))
}

func (b *postgresBatch) Delete(path string) {
	b.ops = append(b.ops, newWriteOp(opDelete, path, nil))
}

func (b *postgresBatch) Len() int { return len(b.ops) }

// Commit applies every queued write in one transaction. Notifications are
// delivered by the server only once the transaction commits.
func (b *postgresBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > repository.MaxBatchWrites {
		return fmt.Errorf("%w: %d operations, limit %d", repository.ErrBatchTooLarge, len(b.ops), repository.MaxBatchWrites)
	}
	for _, op := range b.ops {
		if op.err != nil {
			return op.err
		}
	}
	if err := b.store.ensureReady(ctx); err != nil {
		return err
	}

	var missing string
	err := pgx.BeginFunc(ctx, b.store.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, op := range b.ops {
			switch op.kind {
			case opSet:
				batch.Queue(stmtSetDocument, op.path, op.collection, op.id, op.data)
			case opUpdate:
				batch.Queue(stmtUpdateDocument, op.path, op.data).Exec(requireRow(op.path, &missing))
			case opUpdateEntry:
				batch.Queue(stmtUpdateMapEntry, op.path, op.field, op.key, op.raw).Exec(requireRow(op.path, &missing))
			case opDelete:
				batch.Queue(stmtDeleteDocument, op.path)
			}
		}
		for _, collection := range lo.Uniq(lo.Map(b.ops, func(op writeOp, _ int) string { return op.collection })) {
			batch.Queue(stmtNotify, notifyChannel, collection)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if missing != "" {
		return fmt.Errorf("%w: %s", repository.ErrDocumentNotFound, missing)
	}
	if err != nil {
		return wrapNetwork("commit batch", err)
	}
	return nil
}

// Listen registers handler with the shared notification listener. The
// subscription holds no pool connection between deliveries.
func (s *PostgresStore) Listen(ctx context.Context, collection string, handler repository.SnapshotHandler) (repository.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: listener handler is required", entity.ErrInvalidInput)
	}
	if s.listenCtx.Err() != nil {
		return nil, fmt.Errorf("%w: document store is closed", entity.ErrNetwork)
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	s.listenOnce.Do(func() { go s.runListener(s.listenCtx) })
	return s.hub.subscribe(ctx, collection, func(ctx context.Context) {
		s.deliver(ctx, collection, handler)
	}), nil
}

func (s *PostgresStore) deliver(ctx context.Context, collection string, handler repository.SnapshotHandler) {
	docs, err := repository.QueryAll(ctx, s, collection, 1000)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		handler(repository.Snapshot{Collection: collection}, err)
		return
	}
	handler(repository.Snapshot{Collection: collection, Documents: docs}, nil)
}

// runListener keeps one LISTEN connection open and forwards notification
// payloads, which name the changed collection, to the hub.
func (s *PostgresStore) runListener(ctx context.Context) {
	defer close(s.listenDone)
	for {
		conn, err := s.connectListener(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("connect notification listener")
			if sleepErr := sleepWithContext(ctx, listenRetryDelay); sleepErr != nil {
				return
			}
			continue
		}
		// changes may have been missed while disconnected
		s.hub.notifyAll()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
				_ = conn.Close(closeCtx)
				cancel()
				if ctx.Err() != nil {
					return
				}
				s.logger.WithError(err).Warn("wait for notification")
				break
			}
			s.hub.notify(n.Payload)
		}
	}
}

func (s *PostgresStore) connectListener(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, s.pool.Config().ConnConfig)
	if err != nil {
		return nil, wrapNetwork("connect listener", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, wrapNetwork("listen", err)
	}
	return conn, nil
}

func requireRow(path string, missing *string) func(pgconn.CommandTag) error {
	return func(tag pgconn.CommandTag) error {
		if tag.RowsAffected() == 0 {
			*missing = path
			return repository.ErrDocumentNotFound
		}
		return nil
	}
}

func wrapNetwork(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", entity.ErrNetwork, op, err)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
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
