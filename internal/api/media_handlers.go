package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamnestapp/streamnest-server/internal/http/response"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// handleCreateMedia registers a new media item.
func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	var req service.CreateMediaRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	media, err := s.services.Media.Create(ctx, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, media, s.logger)
}

// handleListMedia returns all media items with the caller's view state.
func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	items, err := s.services.Media.List(ctx, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}

// handleGetMedia returns a single media item with the caller's view state.
func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
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

	media, err := s.services.Media.Get(ctx, userID, mediaID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, media, s.logger)
}
