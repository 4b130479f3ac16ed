package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ServiceManager runs the HTTP server and tears down its dependencies on shutdown
type ServiceManager struct {
	server          *http.Server
	shutdownTimeout time.Duration
	cleanups        []cleanup
}

type cleanup struct {
	name string
	fn   func() error
}

// NewServiceManager creates a service manager for server
func NewServiceManager(server *http.Server, shutdownTimeout time.Duration) *ServiceManager {
	return &ServiceManager{
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

// OnShutdown registers fn to run after the server has stopped.
// Cleanups run in reverse registration order.
func (sm *ServiceManager) OnShutdown(name string, fn func() error) {
	sm.cleanups = append(sm.cleanups, cleanup{name: name, fn: fn})
}

// Run serves until ctx is cancelled or the server fails, then shuts down gracefully
func (sm *ServiceManager) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", sm.server.Addr).
			Msg("Server starting")

		if err := sm.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	if err := sm.server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	sm.runCleanups()

	log.Info().Msg("Service shutdown complete")
	return runErr
}

func (sm *ServiceManager) runCleanups() {
	for i := len(sm.cleanups) - 1; i >= 0; i-- {
		c := sm.cleanups[i]
		log.Info().Str("component", c.name).Msg("Cleaning up")
		if err := c.fn(); err != nil {
			log.Error().Err(err).Str("component", c.name).Msg("Cleanup failed")
		}
	}
}
