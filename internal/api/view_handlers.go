package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamnestapp/streamnest-server/internal/http/response"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// handleRecordView records a client-reported view of a content item.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	contentType := chi.URLParam(r, "contentType")
	contentID := chi.URLParam(r, "contentID")

	if userID == "" {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	var req service.DirectViewRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.services.View.RecordDirect(ctx, userID, contentType, contentID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
