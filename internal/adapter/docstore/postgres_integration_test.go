package docstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/database"
	"github.com/eslsoft/vocsync/internal/repository"
)

func postgresIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()
	return postgresIntegrationStoreWithConns(t, 0)
}

func postgresIntegrationStoreWithConns(t *testing.T, maxConns int32) *PostgresStore {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("VOCSYNC_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("VOCSYNC_TEST_POSTGRES_DSN not set")
	}
	logger := logrus.New()
	pool, cleanup, err := database.NewPool(context.Background(), &config.Config{Remote: config.RemoteConfig{DSN: dsn, MaxConns: maxConns}}, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	store := NewPostgresStore(pool, logger)
	t.Cleanup(store.Close)
	return store
}

func TestPostgresIntegrationBatchAndQuery(t *testing.T) {
	store := postgresIntegrationStore(t)
	ctx := context.Background()
	collection := fmt.Sprintf("users/it-%s/words", uuid.NewString())

	b := store.Batch()
	for i := 0; i < 5; i++ {
		b.Set(repository.DocumentPath(collection, fmt.Sprintf("w%d", i)), map[string]any{"headword": fmt.Sprintf("word %d", i), "tags": []any{"a"}})
	}
	require.NoError(t, b.Commit(ctx))
	t.Cleanup(func() {
		cleanup := store.Batch()
		for i := 0; i < 5; i++ {
			cleanup.Delete(repository.DocumentPath(collection, fmt.Sprintf("w%d", i)))
		}
		_ = cleanup.Commit(context.Background())
	})

	require.NoError(t, store.Update(ctx, repository.DocumentPath(collection, "w1"), map[string]any{"favorite": true}))
	doc, err := store.Get(ctx, repository.DocumentPath(collection, "w1"))
	require.NoError(t, err)
	require.Equal(t, true, doc.Data["favorite"])
	require.Equal(t, "word 1", doc.Data["headword"])

	all, err := repository.QueryAll(ctx, store, collection, 2)
	require.NoError(t, err)
	require.Len(t, all, 5)

	failing := store.Batch()
	failing.Delete(repository.DocumentPath(collection, "w0"))
	failing.Update(repository.DocumentPath(collection, "missing"), map[string]any{"x": 1})
	require.ErrorIs(t, failing.Commit(ctx), repository.ErrDocumentNotFound)

	ids, err := store.ListIDs(ctx, collection)
	require.NoError(t, err)
	require.Len(t, ids, 5)
}

func TestPostgresIntegrationListen(t *testing.T) {
	store := postgresIntegrationStore(t)
	ctx := context.Background()
	collection := fmt.Sprintf("dictionaries-it-%s", uuid.NewString())

	rec := &snapshotRecorder{}
	sub, err := store.Listen(ctx, collection, rec.handle)
	require.NoError(t, err)
	defer sub.Stop()
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 20*time.Millisecond)

	path := repository.DocumentPath(collection, "d1")
	require.NoError(t, store.Set(ctx, path, map[string]any{"name": "A"}))
	t.Cleanup(func() { _ = store.Delete(context.Background(), path) })

	require.Eventually(t, func() bool {
		return rec.count() >= 2 && len(rec.last().Documents) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPostgresIntegrationListenersExceedPoolSize(t *testing.T) {
	store := postgresIntegrationStoreWithConns(t, 2)
	ctx := context.Background()
	prefix := fmt.Sprintf("dictionaries/it-%s", uuid.NewString())

	const listeners = 6
	recs := make([]*snapshotRecorder, listeners)
	collections := make([]string, listeners)
	for i := range recs {
		recs[i] = &snapshotRecorder{}
		collections[i] = fmt.Sprintf("%s-%d/words", prefix, i)
		sub, err := store.Listen(ctx, collections[i], recs[i].handle)
		require.NoError(t, err)
		t.Cleanup(sub.Stop)
	}

	for i, collection := range collections {
		path := repository.DocumentPath(collection, "w1")
		require.NoError(t, store.Set(ctx, path, map[string]any{"headword": fmt.Sprintf("word %d", i)}))
		t.Cleanup(func() { _ = store.Delete(context.Background(), path) })
	}
	for _, rec := range recs {
		require.Eventually(t, func() bool {
			return rec.count() >= 2 && len(rec.last().Documents) == 1
		}, 10*time.Second, 20*time.Millisecond)
	}
}

func TestPostgresIntegrationUpdateMapEntry(t *testing.T) {
	store := postgresIntegrationStore(t)
	ctx := context.Background()
	path := repository.DocumentPath(fmt.Sprintf("dictionaries/it-%s/words", uuid.NewString()), "w1")
	require.NoError(t, store.Set(ctx, path, map[string]any{"headword": "word"}))
	t.Cleanup(func() { _ = store.Delete(context.Background(), path) })

	require.NoError(t, store.UpdateMapEntry(ctx, path, "likes", "a@example.com", true))
	require.NoError(t, store.UpdateMapEntry(ctx, path, "likes", "b@example.com", true))
	require.NoError(t, store.UpdateMapEntry(ctx, path, "likes", "a@example.com", false))

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a@example.com": false, "b@example.com": true}, doc.Data["likes"])
	require.Equal(t, "word", doc.Data["headword"])

	missing := repository.DocumentPath(fmt.Sprintf("dictionaries/it-%s/words", uuid.NewString()), "nope")
	require.ErrorIs(t, store.UpdateMapEntry(ctx, missing, "likes", "a@example.com", true), repository.ErrDocumentNotFound)
}
