package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

// WordUsecase manages the on-device vocabulary. Every write marks the entry
// as pending upload.
type WordUsecase interface {
	AddWord(ctx context.Context, word *entity.Word) (*entity.Word, error)
	UpdateWord(ctx context.Context, word *entity.Word) (*entity.Word, error)
	GetWord(ctx context.Context, id string) (*entity.Word, error)
	ListWords(ctx context.Context, query *repository.ListWordQuery) ([]*entity.Word, int64, error)
	DeleteWord(ctx context.Context, id string) error
}

// NewWordUsecase wires the repository with default behaviour.
func NewWordUsecase(repo repository.LocalWordRepository) WordUsecase {
	return &wordUsecase{
		repo:  repo,
		clock: time.Now,
		newID: uuid.NewString,
	}
}

type wordUsecase struct {
	repo  repository.LocalWordRepository
	clock func() time.Time
	newID func() string
}

func (u *wordUsecase) AddWord(ctx context.Context, word *entity.Word) (*entity.Word, error) {
	if word == nil || strings.TrimSpace(word.Headword) == "" {
		return nil, fmt.Errorf("%w: headword is required", entity.ErrInvalidInput)
	}
	copy := word.Clone()
	if strings.TrimSpace(copy.ID) == "" {
		copy.ID = u.newID()
	}
	copy.Normalize(u.clock())
	copy.IsSynced = false
	if err := u.repo.Save(ctx, []*entity.Word{copy}); err != nil {
		return nil, err
	}
	return copy, nil
}

func (u *wordUsecase) UpdateWord(ctx context.Context, word *entity.Word) (*entity.Word, error) {
	if word == nil || strings.TrimSpace(word.ID) == "" {
		return nil, fmt.Errorf("%w: word id is required", entity.ErrInvalidInput)
	}
	existing, err := u.repo.FetchByID(ctx, strings.TrimSpace(word.ID))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrWordNotFound, word.ID)
	}

	updated := word.Clone()
	updated.ID = existing.ID
	updated.Normalize(u.clock())
	updated.IsSynced = false
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("update word %s: %w", updated.ID, err)
	}
	if err := u.repo.Save(ctx, []*entity.Word{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (u *wordUsecase) GetWord(ctx context.Context, id string) (*entity.Word, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: word id is required", entity.ErrInvalidInput)
	}
	word, err := u.repo.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if word == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrWordNotFound, id)
	}
	return word, nil
}

func (u *wordUsecase) ListWords(ctx context.Context, query *repository.ListWordQuery) ([]*entity.Word, int64, error) {
	return u.repo.List(ctx, query)
}

func (u *wordUsecase) DeleteWord(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: word id is required", entity.ErrInvalidInput)
	}
	return u.repo.Delete(ctx, id)
}
