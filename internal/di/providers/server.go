package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/streamnestapp/streamnest-server/internal/api"
	"github.com/streamnestapp/streamnest-server/internal/auth"
	"github.com/streamnestapp/streamnest-server/internal/config"
	"github.com/streamnestapp/streamnest-server/internal/logger"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// In-flight requests get this long to drain before shutdown is abandoned.
const shutdownTimeout = 15 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	telemetryHandle := do.MustInvoke[*TelemetryLimiterHandle](i)

	services := api.Services{
		Media:    do.MustInvoke[*service.MediaService](i),
		Playback: do.MustInvoke[*service.PlaybackService](i),
		View:     do.MustInvoke[*service.ViewService](i),
	}

	handler := api.NewServer(services, tokenService, telemetryHandle.KeyedRateLimiter, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
