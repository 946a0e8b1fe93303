package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/infrastructure/database/types"
	"github.com/eslsoft/vocsync/internal/repository"
)

var wordColumns = []string{
	"id", "headword", "definition", "phonetic", "language",
	"examples", "tags", "favorite", "difficulty", "updated_at", "is_synced",
}

const wordSelect = `SELECT id, headword, definition, phonetic, language, examples, tags, favorite, difficulty, updated_at, is_synced FROM words`

func createWordsTable(driver string) string {
	tsType := "TIMESTAMP"
	if driver == "postgres" {
		tsType = "TIMESTAMPTZ"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			headword TEXT NOT NULL,
			definition TEXT NOT NULL DEFAULT '',
			phonetic TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			examples TEXT NOT NULL DEFAULT '[]',
			tags TEXT NOT NULL DEFAULT '[]',
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			difficulty INTEGER NOT NULL DEFAULT 0,
			updated_at %s NULL,
			is_synced BOOLEAN NOT NULL DEFAULT FALSE
		)`, tsType)
}

type wordStore struct {
	db     *sql.DB
	driver string

	initOnce  sync.Once
	initErr   error
	upsertSQL string
}

// NewWordStore returns the local word repository over db. driver is
// "sqlite3" or "postgres".
func NewWordStore(db *sql.DB, driver string) repository.LocalWordRepository {
	return &wordStore{db: db, driver: strings.ToLower(strings.TrimSpace(driver))}
}

func (s *wordStore) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.driver != "sqlite3" && s.driver != "postgres" {
			s.initErr = fmt.Errorf("unsupported database driver %q", s.driver)
			return
		}
		if _, err := s.db.ExecContext(ctx, createWordsTable(s.driver)); err != nil {
			s.initErr = fmt.Errorf("create words table: %w", err)
			return
		}
		upsert, err := buildUpsertClause(s.driver, []string{"id"}, wordColumns)
		if err != nil {
			s.initErr = err
			return
		}
		s.upsertSQL = fmt.Sprintf("INSERT INTO words (%s) VALUES (%s)%s",
			strings.Join(wordColumns, ", "),
			strings.Join(buildPlaceholders(s.driver, 1, len(wordColumns)), ", "),
			upsert,
		)
	})
	return s.initErr
}

func (s *wordStore) FetchAll(ctx context.Context) ([]*entity.Word, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, wordSelect+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("fetch words: %w", err)
	}
	return scanWords(rows)
}

func (s *wordStore) FetchByID(ctx context.Context, id string) (*entity.Word, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	query := wordSelect + " WHERE id = " + buildPlaceholders(s.driver, 1, 1)[0]
	word, err := scanWord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch word %s: %w", id, err)
	}
	return word, nil
}

// Save upserts words in one transaction.
func (s *wordStore) Save(ctx context.Context, words []*entity.Word) error {
	if len(words) == 0 {
		return nil
	}
	for _, w := range words {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("save word %q: %w", lo.FromPtr(w).ID, err)
		}
	}
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, wordArgs(w)...); err != nil {
			return fmt.Errorf("upsert word %s: %w", w.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *wordStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	query := "DELETE FROM words WHERE id = " + buildPlaceholders(s.driver, 1, 1)[0]
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete word %s: %w", id, err)
	}
	return nil
}

func (s *wordStore) List(ctx context.Context, query *repository.ListWordQuery) ([]*entity.Word, int64, error) {
	if query == nil {
		query = &repository.ListWordQuery{}
	}
	p, err := bindListWords(query)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", entity.ErrInvalidInput, err)
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, 0, err
	}

	where := s.buildWhere(p)
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM words"+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count words: %w", err)
	}

	sqlText := wordSelect + where.clause() + buildOrderByClause(p.Order)
	args := append([]any{}, where.args...)
	if query.PageSize > 0 {
		holders := buildPlaceholders(s.driver, len(args)+1, 2)
		sqlText += fmt.Sprintf(" LIMIT %s OFFSET %s", holders[0], holders[1])
		args = append(args, query.PageSize, query.Offset())
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list words: %w", err)
	}
	words, err := scanWords(rows)
	if err != nil {
		return nil, 0, err
	}
	return words, total, nil
}

func (s *wordStore) buildWhere(p *listWordsParams) *whereBuilder {
	w := &whereBuilder{driver: s.driver}
	if p.Headword != "" {
		w.add("LOWER(headword) = LOWER(%s)", p.Headword)
	}
	if p.HeadwordPrefix != "" {
		w.add(`LOWER(headword) LIKE %s ESCAPE '\'`, strings.ToLower(escapeLike(p.HeadwordPrefix))+"%")
	}
	if headwords := normalizeHeadwords(p.Headwords); len(headwords) > 0 {
		w.addIn("LOWER(headword)", headwords)
	}
	if p.Language != "" {
		w.add("language = %s", entity.ParseLanguage(p.Language).Code())
	}
	if p.Tag != "" {
		w.add(`tags LIKE %s ESCAPE '\'`, `%"`+escapeLike(p.Tag)+`"%`)
	}
	if p.Favorite != nil {
		w.add("favorite = %s", *p.Favorite)
	}
	if p.Synced != nil {
		w.add("is_synced = %s", *p.Synced)
	}
	if p.MinDifficulty != nil {
		w.add("difficulty >= %s", *p.MinDifficulty)
	}
	if p.MaxDifficulty != nil {
		w.add("difficulty <= %s", *p.MaxDifficulty)
	}
	return w
}

func wordArgs(w *entity.Word) []any {
	var updatedAt sql.NullTime
	if w.UpdatedAt != nil {
		updatedAt = sql.NullTime{Time: w.UpdatedAt.UTC(), Valid: true}
	}
	return []any{
		w.ID,
		w.Headword,
		w.Definition,
		w.Phonetic,
		w.Language.Code(),
		types.StringList(w.Examples),
		types.StringList(w.Tags),
		w.Favorite,
		w.Difficulty,
		updatedAt,
		w.IsSynced,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWord(row rowScanner) (*entity.Word, error) {
	var (
		w         entity.Word
		language  string
		examples  types.StringList
		tags      types.StringList
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&w.ID, &w.Headword, &w.Definition, &w.Phonetic, &language,
		&examples, &tags, &w.Favorite, &w.Difficulty, &updatedAt, &w.IsSynced,
	); err != nil {
		return nil, err
	}
	w.Language = entity.ParseLanguage(language)
	w.Examples = []string(examples)
	w.Tags = []string(tags)
	if updatedAt.Valid {
		w.UpdatedAt = lo.ToPtr(updatedAt.Time.UTC())
	}
	return &w, nil
}

func scanWords(rows *sql.Rows) ([]*entity.Word, error) {
	defer rows.Close()
	var out []*entity.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return out, nil
}
