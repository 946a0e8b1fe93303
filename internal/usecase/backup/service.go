package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eslsoft/vocsync/internal/adapter/mapping"
	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
	"github.com/eslsoft/vocsync/internal/usecase/merge"
	"github.com/eslsoft/vocsync/internal/usecase/retry"
)

const (
	defaultBatchSize      = repository.MaxBatchWrites
	defaultPageSize       = 1000
	defaultMergeChunkSize = 100
	defaultConcurrency    = 4
)

// Phase names a stage of a backup run for progress reporting.
type Phase string

const (
	PhaseDelete   Phase = "delete"
	PhaseUpload   Phase = "upload"
	PhaseDownload Phase = "download"
	PhaseMerge    Phase = "merge"
)

// ProgressReporter receives per-phase counts. Increment may be called from
// several goroutines at once during an upload.
type ProgressReporter interface {
	StartPhase(phase Phase, total int)
	Increment(phase Phase, delta int)
	FinishPhase(phase Phase)
}

type noopProgress struct{}

func (noopProgress) StartPhase(Phase, int) {}
func (noopProgress) Increment(Phase, int)  {}
func (noopProgress) FinishPhase(Phase)     {}

// Service mirrors the local word store into the owner's private remote
// collection and back.
type Service struct {
	remote repository.DocumentStore
	local  repository.LocalWordRepository
	logger logrus.FieldLogger

	batchSize      int
	pageSize       int
	mergeChunkSize int
	concurrency    int
	retry          retry.Policy
	progress       ProgressReporter
}

type Option func(*Service)

// WithBatchSize caps operations per remote batch. Values above the backend
// limit are clamped.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = min(size, repository.MaxBatchWrites)
		}
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithMergeChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.mergeChunkSize = size
		}
	}
}

// WithConcurrency bounds how many remote batches commit at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks.
func WithProgressReporter(reporter ProgressReporter) Option {
	return func(s *Service) {
		if reporter != nil {
			s.progress = reporter
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a backup service over the remote and local stores.
func NewService(remote repository.DocumentStore, local repository.LocalWordRepository, opts ...Option) *Service {
	svc := &Service{
		remote:         remote,
		local:          local,
		logger:         logrus.StandardLogger(),
		batchSize:      defaultBatchSize,
		pageSize:       defaultPageSize,
		mergeChunkSize: defaultMergeChunkSize,
		concurrency:    defaultConcurrency,
		retry:          retry.Policy{Attempts: retry.DefaultAttempts, Delay: retry.DefaultDelay},
		progress:       noopProgress{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.retry.Logger == nil {
		svc.retry.Logger = svc.logger
	}
	return svc
}

// WithProgress returns a copy of s that reports to reporter.
func (s *Service) WithProgress(reporter ProgressReporter) *Service {
	clone := *s
	if reporter != nil {
		clone.progress = reporter
	}
	return &clone
}

// UploadResult summarizes an upload run.
type UploadResult struct {
	Deleted      int
	Uploaded     int
	FailedChunks int
}

// DownloadResult summarizes a download run.
type DownloadResult struct {
	Fetched  int
	Merged   int
	Inserted int
	Skipped  int
}

// chunkTracker collects per-chunk outcomes from concurrent commits.
type chunkTracker struct {
	mu       sync.Mutex
	done     int
	failed   int
	firstErr error
}

func (c *chunkTracker) succeed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done += n
}

func (c *chunkTracker) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
	if c.firstErr == nil {
		c.firstErr = err
	}
}

// Upload makes the owner's remote collection equal to entries: remote-only
// documents are deleted, then every entry is written in full. Entries of a
// committed chunk are saved locally as synced. Failed chunks do not stop
// the remaining ones; the run then ends with an error wrapping
// entity.ErrSyncFailed.
func (s *Service) Upload(ctx context.Context, owner string, entries []*entity.Word) (UploadResult, error) {
	var result UploadResult
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return result, fmt.Errorf("%w: owner is required", entity.ErrInvalidInput)
	}
	for _, w := range entries {
		if w == nil || strings.TrimSpace(w.ID) == "" {
			return result, fmt.Errorf("%w: entry id is required", entity.ErrInvalidInput)
		}
	}

	collection := repository.UserWordsCollection(owner)
	log := s.logger.WithFields(logrus.Fields{"owner": owner, "collection": collection})

	var remoteIDs []string
	err := s.retry.Do(ctx, "list remote ids", func(ctx context.Context) error {
		var err error
		remoteIDs, err = s.remote.ListIDs(ctx, collection)
		return err
	})
	if err != nil {
		return result, err
	}

	localIDs := lo.Map(entries, func(w *entity.Word, _ int) string { return w.ID })
	remoteOnly, _ := lo.Difference(remoteIDs, localIDs)

	deletes := &chunkTracker{}
	s.progress.StartPhase(PhaseDelete, len(remoteOnly))
	runChunks(ctx, s.concurrency, lo.Chunk(remoteOnly, s.batchSize), func(ctx context.Context, idx int, ids []string) {
		batch := s.remote.Batch()
		for _, id := range ids {
			batch.Delete(repository.DocumentPath(collection, id))
		}
		if err := s.retry.Do(ctx, "delete chunk", batch.Commit); err != nil {
			log.WithError(err).WithField("chunk", idx).Error("delete chunk failed")
			deletes.fail(err)
			return
		}
		deletes.succeed(len(ids))
		s.progress.Increment(PhaseDelete, len(ids))
	})
	s.progress.FinishPhase(PhaseDelete)

	uploads := &chunkTracker{}
	s.progress.StartPhase(PhaseUpload, len(entries))
	runChunks(ctx, s.concurrency, lo.Chunk(entries, s.batchSize), func(ctx context.Context, idx int, chunk []*entity.Word) {
		batch := s.remote.Batch()
		for _, w := range chunk {
			batch.Set(repository.DocumentPath(collection, w.ID), mapping.ToWordDocument(w))
		}
		if err := s.retry.Do(ctx, "upload chunk", batch.Commit); err != nil {
			log.WithError(err).WithField("chunk", idx).Error("upload chunk failed")
			uploads.fail(err)
			return
		}
		synced := lo.Map(chunk, func(w *entity.Word, _ int) *entity.Word {
			c := w.Clone()
			c.IsSynced = true
			return c
		})
		if err := s.local.Save(ctx, synced); err != nil {
			err = fmt.Errorf("%w: mark chunk %d synced: %w", entity.ErrSyncFailed, idx, err)
			log.WithError(err).WithField("chunk", idx).Error("local save failed")
			uploads.fail(err)
			return
		}
		uploads.succeed(len(chunk))
		s.progress.Increment(PhaseUpload, len(chunk))
	})
	s.progress.FinishPhase(PhaseUpload)

	result.Deleted = deletes.done
	result.Uploaded = uploads.done
	result.FailedChunks = deletes.failed + uploads.failed
	log.WithFields(logrus.Fields{
		"deleted":       result.Deleted,
		"uploaded":      result.Uploaded,
		"failed_chunks": result.FailedChunks,
	}).Info("backup upload finished")

	if result.FailedChunks > 0 {
		return result, fmt.Errorf("upload backup: %d chunk(s) failed: %w", result.FailedChunks, errors.Join(deletes.firstErr, uploads.firstErr))
	}
	return result, nil
}

// Download fetches the owner's remote collection page by page and folds it
// into the local store. Existing entries are merged, new ones inserted as
// synced. Each merge chunk is saved in one local transaction; documents
// that cannot be decoded are skipped.
func (s *Service) Download(ctx context.Context, owner string) (DownloadResult, error) {
	var result DownloadResult
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return result, fmt.Errorf("%w: owner is required", entity.ErrInvalidInput)
	}
	collection := repository.UserWordsCollection(owner)
	log := s.logger.WithFields(logrus.Fields{"owner": owner, "collection": collection})

	var remote []*entity.Word
	s.progress.StartPhase(PhaseDownload, 0)
	after := ""
	for {
		var page []repository.Document
		err := s.retry.Do(ctx, "download page", func(ctx context.Context) error {
			var err error
			page, err = s.remote.Query(ctx, collection, after, s.pageSize)
			return err
		})
		if err != nil {
			s.progress.FinishPhase(PhaseDownload)
			return result, err
		}
		for _, doc := range page {
			w, err := mapping.FromWordDocument(doc)
			if err != nil {
				log.WithError(err).WithField("doc_id", doc.ID).Warn("skip malformed backup document")
				result.Skipped++
				continue
			}
			remote = append(remote, w)
		}
		result.Fetched += len(page)
		s.progress.Increment(PhaseDownload, len(page))
		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}
	s.progress.FinishPhase(PhaseDownload)

	merges := &chunkTracker{}
	s.progress.StartPhase(PhaseMerge, len(remote))
	for idx, chunk := range lo.Chunk(remote, s.mergeChunkSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		merged, inserted, err := s.mergeChunk(ctx, chunk)
		if err != nil {
			err = fmt.Errorf("%w: merge chunk %d: %w", entity.ErrSyncFailed, idx, err)
			log.WithError(err).WithField("chunk", idx).Error("merge chunk failed")
			merges.fail(err)
			continue
		}
		result.Merged += merged
		result.Inserted += inserted
		s.progress.Increment(PhaseMerge, len(chunk))
	}
	s.progress.FinishPhase(PhaseMerge)

	log.WithFields(logrus.Fields{
		"fetched":  result.Fetched,
		"merged":   result.Merged,
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("backup download finished")

	if merges.failed > 0 {
		return result, fmt.Errorf("download backup: %d chunk(s) failed: %w", merges.failed, merges.firstErr)
	}
	return result, nil
}

func (s *Service) mergeChunk(ctx context.Context, chunk []*entity.Word) (merged, inserted int, err error) {
	toSave := make([]*entity.Word, 0, len(chunk))
	for _, incoming := range chunk {
		existing, err := s.local.FetchByID(ctx, incoming.ID)
		if err != nil {
			return 0, 0, err
		}
		if existing == nil {
			incoming.IsSynced = true
			toSave = append(toSave, incoming)
			inserted++
			continue
		}
		if merge.Merge(existing, incoming) {
			toSave = append(toSave, existing)
			merged++
		}
	}
	if err := s.local.Save(ctx, toSave); err != nil {
		return 0, 0, err
	}
	return merged, inserted, nil
}

// runChunks runs fn for each chunk with at most limit in flight and waits
// for all of them. Chunks may finish in any order.
func runChunks[T any](ctx context.Context, limit int, chunks [][]T, fn func(ctx context.Context, idx int, chunk []T)) {
	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for idx, chunk := range chunks {
		g.Go(func() error {
			fn(ctx, idx, chunk)
			return nil
		})
	}
	_ = g.Wait()
}
