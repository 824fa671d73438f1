// Package library maintains a local mirror of the backend media library.
// The mirror is replaced wholesale by each sync and patched in place when a
// single status refresh resolves, so the agent can present the last-known
// library even while the backend is unreachable.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribesearch/scribe-agent/internal/backend"
	"github.com/scribesearch/scribe-agent/internal/cache"
)

// MediaLister fetches the full media list. Satisfied by backend.UploadClient.
type MediaLister interface {
	GetAllMedia(ctx context.Context) ([]backend.MediaItem, error)
}

type Service struct {
	repo   Repository
	lister MediaLister
	store  *cache.Store
	logger *slog.Logger
}

func NewService(repo Repository, lister MediaLister, store *cache.Store, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		lister: lister,
		store:  store,
		logger: logger,
	}
}

// Sync refreshes the mirror from the backend: every listed item is upserted
// and rows no longer present are removed. The media cache namespace is
// refreshed with the new list.
func (s *Service) Sync(ctx context.Context) ([]*MediaRecord, error) {
	items, err := s.lister.GetAllMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch media list: %w", err)
	}

	now := time.Now()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		if err := s.repo.UpsertMedia(ctx, recordFromItem(item, now)); err != nil {
			return nil, fmt.Errorf("upsert media %s: %w", item.ID, err)
		}
	}
	if err := s.repo.DeleteMediaNotIn(ctx, ids); err != nil {
		return nil, fmt.Errorf("prune removed media: %w", err)
	}

	records, err := s.repo.ListMedia(ctx)
	if err != nil {
		return nil, err
	}

	s.store.Set("media/list", records, 0)
	s.logger.Info("library synced", "count", len(records))
	return records, nil
}

// List returns the mirror, preferring the cached copy.
func (s *Service) List(ctx context.Context) ([]*MediaRecord, error) {
	if v, ok := s.store.Get("media/list"); ok {
		return v.([]*MediaRecord), nil
	}

	records, err := s.repo.ListMedia(ctx)
	if err != nil {
		return nil, err
	}
	s.store.Set("media/list", records, 0)
	return records, nil
}

func (s *Service) Get(ctx context.Context, id string) (*MediaRecord, error) {
	return s.repo.GetMedia(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountMedia(ctx)
}

// ApplyStatus patches one item's status in place after a status refresh
// resolved. Last write wins; callers uphold the one-in-flight-per-id
// polling discipline. Unknown identifiers are ignored.
func (s *Service) ApplyStatus(ctx context.Context, id string, status backend.MediaStatus) error {
	rec, err := s.repo.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if err := s.repo.UpdateMediaStatus(ctx, id, status); err != nil {
		return err
	}
	s.store.Invalidate("media/list")

	s.logger.Debug("media status patched", "media_id", id, "status", status)
	return nil
}

// RecordUpload registers a just-uploaded file in the mirror before the first
// sync can observe it, and invalidates the media cache namespace.
func (s *Service) RecordUpload(ctx context.Context, id, fileName, contentType string, sizeBytes int64, model string) error {
	now := time.Now()
	rec := &MediaRecord{
		ID:            id,
		FileName:      fileName,
		ContentType:   contentType,
		FileSizeBytes: sizeBytes,
		Status:        backend.StatusUploaded,
		Model:         model,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.UpsertMedia(ctx, rec); err != nil {
		return err
	}

	s.store.InvalidatePrefix("media/")
	s.logger.Info("upload recorded", "media_id", id, "file_name", fileName)
	return nil
}

// RecordSearch appends one completed search to the local history.
func (s *Service) RecordSearch(ctx context.Context, req backend.QueryRequest, requestJSON string, resp backend.QueryResponse) (*SearchRecord, error) {
	rec := &SearchRecord{
		ID:          uuid.NewString(),
		Question:    req.Question,
		RequestJSON: requestJSON,
		Answer:      resp.Answer,
		SourceCount: len(resp.Sources),
		CreatedAt:   time.Now(),
	}
	if err := s.repo.SaveSearch(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecentSearches returns up to limit history entries, newest first.
func (s *Service) RecentSearches(ctx context.Context, limit int) ([]*SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListSearches(ctx, limit)
}
