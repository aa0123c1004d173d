package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamnestapp/streamnest-server/internal/domain"
	"github.com/streamnestapp/streamnest-server/internal/id"
	"github.com/streamnestapp/streamnest-server/internal/store"
)

// MediaService manages the media catalog surface.
type MediaService struct {
	store  *store.Store
	views  *ViewService
	logger *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(store *store.Store, views *ViewService, logger *slog.Logger) *MediaService {
	return &MediaService{
		store:  store,
		views:  views,
		logger: logger,
	}
}

// CreateMediaRequest contains the data for registering a media item.
type CreateMediaRequest struct {
	Title       string  `json:"title" validate:"required,max=512"`
	Kind        string  `json:"kind" validate:"required,oneof=video audio ebook"`
	DurationSec float64 `json:"duration_sec" validate:"gte=0"`
}

// Create registers a new media item with zeroed counters.
func (s *MediaService) Create(ctx context.Context, req CreateMediaRequest) (*domain.MediaItem, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	kind, _ := domain.ParseMediaKind(req.Kind)

	mediaID, err := id.Generate("med")
	if err != nil {
		return nil, fmt.Errorf("generate media ID: %w", err)
	}

	now := time.Now()
	media := &domain.MediaItem{
		ID:          mediaID,
		Title:       req.Title,
		Kind:        kind,
		DurationSec: req.DurationSec,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateMedia(ctx, media); err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}

	s.logger.Debug("created media item", "media_id", media.ID, "kind", media.Kind)
	return media, nil
}

// MediaWithViewState is a media item enriched with the caller's view state.
type MediaWithViewState struct {
	*domain.MediaItem
	HasViewed bool `json:"has_viewed"`
}

// Get retrieves a media item enriched with whether the caller has viewed it.
func (s *MediaService) Get(ctx context.Context, userID, mediaID string) (*MediaWithViewState, error) {
	media, err := s.store.GetMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	viewed, err := s.views.HasViewed(ctx, userID, mediaID)
	if err != nil {
		return nil, fmt.Errorf("view lookup: %w", err)
	}

	return &MediaWithViewState{MediaItem: media, HasViewed: viewed}, nil
}

// List returns all media items enriched with the caller's view state.
// One batch lookup instead of a view query per item.
func (s *MediaService) List(ctx context.Context, userID string) ([]*MediaWithViewState, error) {
	items, err := s.store.ListMedia(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID
	}

	viewed, err := s.views.HasViewedBatch(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("batch view lookup: %w", err)
	}

	result := make([]*MediaWithViewState, len(items))
	for i, m := range items {
		result[i] = &MediaWithViewState{MediaItem: m, HasViewed: viewed[m.ID]}
	}

	return result, nil
}
