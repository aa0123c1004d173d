package api

import (
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Media    *service.MediaService
	Playback *service.PlaybackService
	View     *service.ViewService
}
