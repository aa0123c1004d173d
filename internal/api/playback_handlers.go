package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamnestapp/streamnest-server/internal/http/response"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// handleStartSession starts a playback session for a media item.
// Any session the user already has running is superseded.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	mediaID := chi.URLParam(r, "mediaID")

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}
	if mediaID == "" {
		response.BadRequest(w, "Media ID is required", s.logger)
		return
	}

	// Body is optional; an empty body starts from the saved position.
	var req service.StartSessionRequest
	if r.ContentLength != 0 {
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body", s.logger)
			return
		}
	}

	result, err := s.services.Playback.Start(ctx, userID, mediaID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, result, s.logger)
}

// handleProgress applies a playback position report to a session.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req service.ProgressRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	session, err := s.services.Playback.Progress(ctx, userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, session, s.logger)
}

// sessionIDRequest identifies the session for pause and resume calls.
type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

// handlePauseSession pauses a session.
func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req sessionIDRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil || req.SessionID == "" {
		response.BadRequest(w, "session_id is required", s.logger)
		return
	}

	session, err := s.services.Playback.Pause(ctx, userID, req.SessionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, session, s.logger)
}

// handleResumeSession resumes a paused session.
func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req sessionIDRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil || req.SessionID == "" {
		response.BadRequest(w, "session_id is required", s.logger)
		return
	}

	session, err := s.services.Playback.Resume(ctx, userID, req.SessionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, session, s.logger)
}

// handleEndSession finalizes a session. Safe to retry.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req service.EndSessionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.services.Playback.End(ctx, userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleGetActiveSession returns the user's current session, or null.
func (s *Server) handleGetActiveSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	session, err := s.services.Playback.GetActive(ctx, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, session, s.logger)
}

// handleGetHistory returns a page of the user's sessions, most recent first.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	params := parsePaginationParams(r)

	history, err := s.services.Playback.GetHistory(ctx, userID, params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, history, s.logger)
}
