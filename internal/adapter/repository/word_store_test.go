package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

func newSQLiteStore(t *testing.T) repository.LocalWordRepository {
	t.Helper()
	requireSQLite(t)
	dsn := "file:" + filepath.Join(t.TempDir(), "words.db") + "?_fk=1"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return NewWordStore(db, "sqlite3")
}

func requireSQLite(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Skipf("sqlite driver not available: %v", err)
		return
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("skipping sqlite-dependent tests: %v", err)
	}
}

func ts(minute int) *time.Time {
	t := time.Date(2025, 6, 1, 10, minute, 0, 500, time.UTC)
	return &t
}

func seedWords(t *testing.T, store repository.LocalWordRepository) {
	t.Helper()
	words := []*entity.Word{
		{ID: "w1", Headword: "Run", Language: entity.LanguageEnglish, Tags: []string{"verb"}, Examples: []string{"run fast"}, Difficulty: 1, UpdatedAt: ts(1)},
		{ID: "w2", Headword: "runway", Language: entity.LanguageEnglish, Tags: []string{"noun"}, Favorite: true, Difficulty: 3, UpdatedAt: ts(2), IsSynced: true},
		{ID: "w3", Headword: "correr", Language: entity.LanguageSpanish, Tags: []string{"verb", "es"}, Favorite: true, Difficulty: 5, UpdatedAt: ts(3)},
		{ID: "w4", Headword: "walk", Language: entity.LanguageEnglish, Difficulty: 2},
	}
	if err := store.Save(context.Background(), words); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestWordStoreSaveAndFetch(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedWords(t, store)

	got, err := store.FetchByID(ctx, "w3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got == nil || got.Headword != "correr" || len(got.Tags) != 2 || got.Tags[1] != "es" || !got.Favorite {
		t.Fatalf("unexpected word: %+v", got)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(*ts(3)) {
		t.Fatalf("unexpected timestamp: %v", got.UpdatedAt)
	}

	missing, err := store.FetchByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing word, got %+v, %v", missing, err)
	}

	untouched, err := store.FetchByID(ctx, "w4")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if untouched.UpdatedAt != nil || untouched.Examples == nil {
		t.Fatalf("expected absent timestamp and empty examples: %+v", untouched)
	}

	all, err := store.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 4 || all[0].ID != "w1" {
		t.Fatalf("unexpected fetch all: %d", len(all))
	}
}

func TestWordStoreSaveUpserts(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedWords(t, store)

	w, _ := store.FetchByID(ctx, "w1")
	w.Definition = "move quickly"
	w.IsSynced = true
	if err := store.Save(ctx, []*entity.Word{w}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := store.FetchByID(ctx, "w1")
	if got.Definition != "move quickly" || !got.IsSynced {
		t.Fatalf("expected update, got %+v", got)
	}

	err := store.Save(ctx, []*entity.Word{{ID: "bad"}})
	if !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestWordStoreDelete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedWords(t, store)

	if err := store.Delete(ctx, "w2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.FetchByID(ctx, "w2"); got != nil {
		t.Fatalf("expected word deleted, got %+v", got)
	}
	if err := store.Delete(ctx, "w2"); err != nil {
		t.Fatalf("deleting a missing word should succeed: %v", err)
	}
}

func TestWordStoreList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedWords(t, store)

	cases := []struct {
		name    string
		filter  string
		orderBy string
		want    []string
	}{
		{"default order puts absent timestamps last", "", "", []string{"w3", "w2", "w1", "w4"}},
		{"prefix is case insensitive", "headword.startsWith('RUN')", "headword", []string{"w1", "w2"}},
		{"favorite", "favorite == true", "id", []string{"w2", "w3"}},
		{"tag", "tag == 'verb'", "id", []string{"w1", "w3"}},
		{"difficulty range", "difficulty >= 2 && difficulty <= 3", "difficulty desc", []string{"w2", "w4"}},
		{"language and sync state", "language == 'en' && synced == false", "id", []string{"w1", "w4"}},
		{"headword list", "headword in ['run', 'walk']", "id", []string{"w1", "w4"}},
	}
	for _, c := range cases {
		q := &repository.ListWordQuery{FilterOrder: repository.FilterOrder{Filter: c.filter, OrderBy: c.orderBy}}
		words, total, err := store.List(ctx, q)
		if err != nil {
			t.Fatalf("%s: list: %v", c.name, err)
		}
		if int(total) != len(c.want) || len(words) != len(c.want) {
			t.Fatalf("%s: expected %d words, got %d (total %d)", c.name, len(c.want), len(words), total)
		}
		for i, id := range c.want {
			if words[i].ID != id {
				t.Fatalf("%s: position %d: want %s got %s", c.name, i, id, words[i].ID)
			}
		}
	}
}

func TestWordStoreListPagination(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedWords(t, store)

	q := &repository.ListWordQuery{
		Pagination:  repository.Pagination{PageNo: 2, PageSize: 3},
		FilterOrder: repository.FilterOrder{OrderBy: "id"},
	}
	words, total, err := store.List(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(words) != 1 || words[0].ID != "w4" {
		t.Fatalf("unexpected page: total=%d words=%d", total, len(words))
	}

	_, _, err = store.List(ctx, &repository.ListWordQuery{FilterOrder: repository.FilterOrder{Filter: "color == 'red'"}})
	if !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
