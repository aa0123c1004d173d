package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/streamnestapp/streamnest-server/internal/http/response"
)

// MintTokenRequest asks for an access token for an arbitrary user ID.
type MintTokenRequest struct {
	UserID string `json:"user_id"`
}

// MintTokenResponse carries the issued token.
type MintTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleMintToken issues an access token for the given user ID. User identity
// is owned by an upstream service; this endpoint exists for development and
// integration testing and is disabled in production.
func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.App.IsProduction() {
		response.NotFound(w, "Not found", s.logger)
		return
	}

	var req MintTokenRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil || req.UserID == "" {
		response.BadRequest(w, "user_id is required", s.logger)
		return
	}

	token, err := s.tokens.IssueAccessToken(req.UserID)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err)
		response.InternalError(w, "Failed to issue token", s.logger)
		return
	}

	response.Success(w, MintTokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.AccessTokenDuration().Seconds()),
	}, s.logger)
}
