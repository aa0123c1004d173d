// Package di provides dependency injection configuration for the StreamNest server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/streamnestapp/streamnest-server/internal/auth"
	"github.com/streamnestapp/streamnest-server/internal/config"
	"github.com/streamnestapp/streamnest-server/internal/di/providers"
	"github.com/streamnestapp/streamnest-server/internal/logger"
	"github.com/streamnestapp/streamnest-server/internal/qualify"
	"github.com/streamnestapp/streamnest-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideQualifyEngine)
	do.Provide(injector, providers.ProvideViewService)
	do.Provide(injector, providers.ProvidePlaybackService)
	do.Provide(injector, providers.ProvideMediaService)
	do.Provide(injector, providers.ProvideTelemetryLimiter)

	// Workers
	do.Provide(injector, providers.ProvideSessionSweepJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*qualify.Engine](injector)
	_ = do.MustInvoke[*service.ViewService](injector)
	_ = do.MustInvoke[*service.PlaybackService](injector)
	_ = do.MustInvoke[*service.MediaService](injector)
	_ = do.MustInvoke[*providers.TelemetryLimiterHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionSweepJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
