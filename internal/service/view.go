package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streamnestapp/streamnest-server/internal/domain"
	"github.com/streamnestapp/streamnest-server/internal/qualify"
	"github.com/streamnestapp/streamnest-server/internal/store"
)

// ViewService owns the path from engagement sample to counted view:
// qualification, the per-(user, content) ledger, and the aggregate counters.
type ViewService struct {
	store  *store.Store
	engine *qualify.Engine
	logger *slog.Logger
}

// NewViewService creates a new view service.
func NewViewService(store *store.Store, engine *qualify.Engine, logger *slog.Logger) *ViewService {
	return &ViewService{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// ViewResult reports the outcome of a view recording attempt.
type ViewResult struct {
	// Created is true only when this call produced the user's first
	// qualifying view of the content.
	Created bool `json:"created"`
	// Count is the content's counter value after the call.
	Count int64 `json:"count"`
}

// RecordIfQualified runs qualification on the sample and, if it passes,
// records the view. A user's repeat views merge into their existing record
// without moving the counter, so the counter always equals the number of
// distinct users with a qualifying view.
func (s *ViewService) RecordIfQualified(ctx context.Context, userID, contentID string, kind domain.MediaKind, sample domain.EngagementSample) (*ViewResult, error) {
	qualifies := s.engine.Qualifies(kind, sample)

	created, count, err := s.store.RecordView(ctx, userID, contentID, kind.Counter(), sample, qualifies)
	if err != nil {
		return nil, fmt.Errorf("record view: %w", err)
	}

	if created {
		s.logger.Debug("recorded qualifying view",
			"user_id", userID,
			"content_id", contentID,
			"kind", kind,
			"count", count,
		)
	}

	return &ViewResult{Created: created, Count: count}, nil
}

// DirectViewRequest carries engagement reported straight by a client, outside
// any playback session.
type DirectViewRequest struct {
	DurationMs  int64   `json:"duration_ms" validate:"gte=0"`
	ProgressPct float64 `json:"progress_pct" validate:"gte=0,lte=100"`
	IsComplete  bool    `json:"is_complete"`
}

// RecordDirect records a client-reported view. The content kind comes from
// the URL; unknown kinds still count, they just qualify under the default
// rule and land on the view counter.
func (s *ViewService) RecordDirect(ctx context.Context, userID, contentType, contentID string, req DirectViewRequest) (*ViewResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	kind, ok := domain.ParseMediaKind(contentType)
	if !ok {
		kind = domain.MediaKind(contentType)
	}

	sample := domain.EngagementSample{
		DurationMs:  req.DurationMs,
		ProgressPct: req.ProgressPct,
		IsComplete:  req.IsComplete,
	}

	return s.RecordIfQualified(ctx, userID, contentID, kind, sample)
}

// HasViewed reports whether the user has a qualifying view of the content.
func (s *ViewService) HasViewed(ctx context.Context, userID, contentID string) (bool, error) {
	return s.store.HasViewed(ctx, userID, contentID)
}

// HasViewedBatch answers HasViewed for many content IDs at once.
func (s *ViewService) HasViewedBatch(ctx context.Context, userID string, contentIDs []string) (map[string]bool, error) {
	return s.store.HasViewedBatch(ctx, userID, contentIDs)
}
