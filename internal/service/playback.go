package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/streamnestapp/streamnest-server/internal/domain"
	domainerrors "github.com/streamnestapp/streamnest-server/internal/errors"
	"github.com/streamnestapp/streamnest-server/internal/id"
	"github.com/streamnestapp/streamnest-server/internal/store"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	return v
}()

// ViewRecorder feeds finished engagement into the view ledger.
// Implemented by ViewService; an interface here keeps playback from caring
// how qualification and counting work.
type ViewRecorder interface {
	RecordIfQualified(ctx context.Context, userID, contentID string, kind domain.MediaKind, sample domain.EngagementSample) (*ViewResult, error)
}

// PlaybackService manages playback session lifecycle.
type PlaybackService struct {
	store      *store.Store
	views      ViewRecorder
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewPlaybackService creates a new playback service.
func NewPlaybackService(store *store.Store, views ViewRecorder, staleAfter time.Duration, logger *slog.Logger) *PlaybackService {
	return &PlaybackService{
		store:      store,
		views:      views,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// StartSessionRequest contains the data for starting a playback session.
type StartSessionRequest struct {
	// PositionSec explicitly overrides the saved resume position.
	PositionSec *float64 `json:"position_sec" validate:"omitempty,gte=0"`
}

// StartSessionResponse contains the new session and where playback resumes.
type StartSessionResponse struct {
	Session    *domain.PlaybackSession `json:"session"`
	ResumeFrom float64                 `json:"resume_from"`
}

// Start begins a playback session for a media item. Any session the user
// already has is ended first; its engagement is still fed to the view ledger
// so switching content never loses a qualifying view.
func (s *PlaybackService) Start(ctx context.Context, userID, mediaID string, req StartSessionRequest) (*StartSessionResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	media, err := s.store.GetMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	sessionID, err := id.Generate("ps")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	session := domain.NewPlaybackSession(sessionID, userID, mediaID, media.Kind, 0, media.DurationSec)

	preempted, err := s.store.StartSession(ctx, session, req.PositionSec)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	if preempted != nil {
		s.recordView(ctx, preempted)
		s.logger.Debug("superseded previous session",
			"user_id", userID,
			"old_session_id", preempted.ID,
			"new_session_id", session.ID,
		)
	}

	s.logger.Debug("started playback session",
		"session_id", session.ID,
		"user_id", userID,
		"media_id", mediaID,
		"resume_from", session.PositionSec,
	)

	return &StartSessionResponse{
		Session:    session,
		ResumeFrom: session.PositionSec,
	}, nil
}

// ProgressRequest contains a playback position report.
type ProgressRequest struct {
	SessionID   string   `json:"session_id" validate:"required"`
	PositionSec float64  `json:"position_sec" validate:"gte=0"`
	DurationSec *float64 `json:"duration_sec" validate:"omitempty,gt=0"`
	Seek        bool     `json:"seek"`
	IsComplete  bool     `json:"is_complete"`
}

// Progress applies a position report to the user's session. Reporting against
// a paused session resumes it; reporting against an ended one fails.
func (s *PlaybackService) Progress(ctx context.Context, userID string, req ProgressRequest) (*domain.PlaybackSession, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	return s.mutateOwned(ctx, userID, req.SessionID, func(session *domain.PlaybackSession) error {
		if session.IsTerminal() {
			return domainerrors.AlreadyTerminal("cannot report progress on an ended session")
		}
		session.ApplyProgress(req.PositionSec, req.DurationSec, req.Seek, req.IsComplete)
		return nil
	})
}

// Pause pauses the session. The accumulated engagement is evaluated for view
// qualification right away, so a user who watched enough and walked away
// still counts.
func (s *PlaybackService) Pause(ctx context.Context, userID, sessionID string) (*domain.PlaybackSession, error) {
	session, err := s.mutateOwned(ctx, userID, sessionID, func(session *domain.PlaybackSession) error {
		if session.IsTerminal() {
			return domainerrors.AlreadyTerminal("cannot pause an ended session")
		}
		session.Pause()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordView(ctx, session)
	return session, nil
}

// Resume reactivates a paused session without creating a new one.
func (s *PlaybackService) Resume(ctx context.Context, userID, sessionID string) (*domain.PlaybackSession, error) {
	return s.mutateOwned(ctx, userID, sessionID, func(session *domain.PlaybackSession) error {
		if session.IsTerminal() {
			return domainerrors.AlreadyTerminal("cannot resume an ended session")
		}
		session.Resume()
		return nil
	})
}

// EndSessionRequest contains the final state reported at session end.
type EndSessionRequest struct {
	SessionID   string   `json:"session_id" validate:"required"`
	PositionSec *float64 `json:"position_sec" validate:"omitempty,gte=0"`
	IsComplete  bool     `json:"is_complete"`
}

// EndSessionResponse contains the ended session and whether this end
// produced the user's first qualifying view of the content.
type EndSessionResponse struct {
	Session      *domain.PlaybackSession `json:"session"`
	ViewRecorded bool                    `json:"view_recorded"`
}

// End finalizes a session and runs view qualification on its engagement.
// Ending an already-ended session is a no-op that reports the stored state;
// clients retrying a lost end response get the same answer back.
func (s *PlaybackService) End(ctx context.Context, userID string, req EndSessionRequest) (*EndSessionResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	session, err := s.mutateOwned(ctx, userID, req.SessionID, func(session *domain.PlaybackSession) error {
		session.End(req.PositionSec, req.IsComplete)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.views.RecordIfQualified(ctx, userID, session.MediaID, session.MediaKind, session.Sample())
	if err != nil {
		return nil, fmt.Errorf("record view: %w", err)
	}

	s.logger.Debug("ended playback session",
		"session_id", session.ID,
		"user_id", userID,
		"media_id", session.MediaID,
		"watched_ms", session.WatchedMs,
		"view_recorded", result.Created,
	)

	return &EndSessionResponse{
		Session:      session,
		ViewRecorded: result.Created,
	}, nil
}

// GetActive returns the user's current non-ended session, or nil if the user
// isn't playing anything.
func (s *PlaybackService) GetActive(ctx context.Context, userID string) (*domain.PlaybackSession, error) {
	session, err := s.store.GetActiveSession(ctx, userID)
	if errors.Is(err, store.ErrNoActiveSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetHistory returns a page of the user's sessions, most recent first.
func (s *PlaybackService) GetHistory(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.PlaybackSession], error) {
	params.Validate()

	sessions, total, err := s.store.GetUserSessions(ctx, userID, params.Page, params.Limit)
	if err != nil {
		return nil, err
	}

	return store.NewPaginatedResult(sessions, params, total), nil
}

// EndStale sweeps sessions abandoned without an end report. Swept sessions
// don't run view qualification: an abandoned player stopped producing signal
// at its last report, and that signal already had its chance at pause time.
func (s *PlaybackService) EndStale(ctx context.Context) (int, error) {
	ended, err := s.store.EndStaleSessions(ctx, s.staleAfter)
	if err != nil {
		return 0, err
	}

	if ended > 0 {
		s.logger.Info("ended stale playback sessions", "count", ended)
	}
	return ended, nil
}

// mutateOwned mutates a session after verifying ownership. Sessions owned by
// other users report as not found rather than forbidden.
func (s *PlaybackService) mutateOwned(
	ctx context.Context,
	userID, sessionID string,
	mutate func(*domain.PlaybackSession) error,
) (*domain.PlaybackSession, error) {
	return s.store.MutateSession(ctx, sessionID, func(session *domain.PlaybackSession) error {
		if session.UserID != userID {
			return store.ErrSessionNotFound
		}
		return mutate(session)
	})
}

// recordView feeds a session's engagement to the ledger without failing the
// caller. Qualification here is best-effort; end reports retry it anyway.
func (s *PlaybackService) recordView(ctx context.Context, session *domain.PlaybackSession) {
	if _, err := s.views.RecordIfQualified(ctx, session.UserID, session.MediaID, session.MediaKind, session.Sample()); err != nil {
		s.logger.Warn("failed to record view",
			"session_id", session.ID,
			"user_id", session.UserID,
			"media_id", session.MediaID,
			"error", err,
		)
	}
}

// formatValidationError converts validator errors to user-friendly domain errors.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return first validation error as a domain error
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "gte":
				return domainerrors.Validationf("%s must be at least %s", field, e.Param())
			case "gt":
				return domainerrors.Validationf("%s must be greater than %s", field, e.Param())
			case "lte":
				return domainerrors.Validationf("%s must be at most %s", field, e.Param())
			case "oneof":
				return domainerrors.Validationf("%s must be one of: %s", field, e.Param())
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}
