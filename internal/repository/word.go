package repository

import (
	"context"

	"github.com/eslsoft/vocsync/internal/entity"
)

// ListWordQuery holds parameters for listing local words.
type ListWordQuery struct {
	Pagination
	FilterOrder
}

// LocalWordRepository is the on-device store of vocabulary entries.
// FetchByID returns (nil, nil) when the entry does not exist. Save is
// transactional per call.
type LocalWordRepository interface {
	FetchAll(ctx context.Context) ([]*entity.Word, error)
	FetchByID(ctx context.Context, id string) (*entity.Word, error)
	Save(ctx context.Context, words []*entity.Word) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query *ListWordQuery) ([]*entity.Word, int64, error)
}
