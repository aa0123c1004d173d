package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/streamnestapp/streamnest-server/internal/logger"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// SessionSweepJob periodically ends playback sessions abandoned without an
// end report.
type SessionSweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionSweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionSweepJob provides the periodic stale-session sweep.
func ProvideSessionSweepJob(i do.Injector) (*SessionSweepJob, error) {
	playbackService := do.MustInvoke[*service.PlaybackService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		// Initial sweep on startup
		if count, err := playbackService.EndStale(ctx); err != nil {
			log.Warn("Initial session sweep failed", "error", err)
		} else if count > 0 {
			log.Info("Initial session sweep completed", "ended", count)
		}

		for {
			select {
			case <-ticker.C:
				if count, err := playbackService.EndStale(ctx); err != nil {
					log.Warn("Session sweep failed", "error", err)
				} else if count > 0 {
					log.Info("Session sweep completed", "ended", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session sweep job started")

	return &SessionSweepJob{cancel: cancel}, nil
}
