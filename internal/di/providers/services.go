package providers

import (
	"github.com/samber/do/v2"

	"github.com/streamnestapp/streamnest-server/internal/config"
	"github.com/streamnestapp/streamnest-server/internal/domain"
	"github.com/streamnestapp/streamnest-server/internal/logger"
	"github.com/streamnestapp/streamnest-server/internal/qualify"
	"github.com/streamnestapp/streamnest-server/internal/ratelimit"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// ProvideQualifyEngine builds the view qualification engine from configuration.
func ProvideQualifyEngine(i do.Injector) (*qualify.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)

	streaming := qualify.Rule{
		MinDurationMs:    cfg.Playback.StreamMinWatchMs,
		MinProgressPct:   cfg.Playback.StreamMinProgressPct,
		CompletionCounts: true,
	}

	return qualify.NewEngine(map[domain.MediaKind]qualify.Rule{
		domain.MediaKindVideo: streaming,
		domain.MediaKindAudio: streaming,
		domain.MediaKindEbook: {MinDurationMs: cfg.Playback.EbookMinReadMs},
	}, streaming), nil
}

// ProvideViewService provides the view recording service.
func ProvideViewService(i do.Injector) (*service.ViewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*qualify.Engine](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewViewService(storeHandle.Store, engine, log.Logger), nil
}

// ProvidePlaybackService provides the playback session service.
func ProvidePlaybackService(i do.Injector) (*service.PlaybackService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	viewService := do.MustInvoke[*service.ViewService](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlaybackService(storeHandle.Store, viewService, cfg.Playback.StaleAfter, log.Logger), nil
}

// ProvideMediaService provides the media catalog service.
func ProvideMediaService(i do.Injector) (*service.MediaService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	viewService := do.MustInvoke[*service.ViewService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMediaService(storeHandle.Store, viewService, log.Logger), nil
}

// TelemetryLimiterHandle wraps the telemetry rate limiter with shutdown capability.
type TelemetryLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *TelemetryLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideTelemetryLimiter provides the per-user limiter for reporting endpoints.
func ProvideTelemetryLimiter(i do.Injector) (*TelemetryLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(cfg.Playback.TelemetryRPS, cfg.Playback.TelemetryBurst)
	return &TelemetryLimiterHandle{KeyedRateLimiter: limiter}, nil
}
