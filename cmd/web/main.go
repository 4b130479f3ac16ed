package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/config"
	"stealthcompany.com/patientrecords/internal/couchbase"
	"stealthcompany.com/patientrecords/internal/fhir"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
	"stealthcompany.com/patientrecords/internal/orchestrator"
	"stealthcompany.com/patientrecords/internal/patientstore"
	"stealthcompany.com/patientrecords/internal/web"
	"stealthcompany.com/patientrecords/pkg/zerolog_config"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Set app prefix
	zerolog_config.SetAppPrefix("patientrecords-web")

	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, cfg.LogIndex, cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	log.Info().
		Str("backend", cfg.Backend).
		Msg("Starting patientrecords web service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := orchestrator.NewSignalHandler()
	defer signals.Stop()
	signals.HandleSignals(ctx, cancel)

	metrics.Configure(cfg.BusinessMetrics, cfg.SystemMetrics)
	metrics.StartSystemMetrics(ctx, cfg.SystemMetricsInterval)

	backend, lock, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize patient backend")
	}

	svc, err := patientstore.NewDataService(ctx, backend, patientstore.WithLatency(cfg.MockLatency))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start patient data service")
	}

	sessions := web.NewSessionManager(svc, cfg.SessionIdleTimeout)
	sessions.StartReaper(ctx, time.Minute)

	// Picks up records written by cmd/ingest into the shared bucket
	if cfg.Backend == config.BackendCouchbase && cfg.RefreshInterval > 0 {
		svc.StartRefresh(ctx, cfg.RefreshInterval, lock)
	}

	server, err := web.NewServer(svc, sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP server")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	manager := orchestrator.NewServiceManager(httpServer, shutdownTimeout)
	manager.OnShutdown("patient backend", closeBackend)
	manager.OnShutdown("sessions", func() error {
		sessions.CloseAll()
		return nil
	})

	if err := manager.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Web service stopped with error")
	}
}

// newBackend builds the configured patient backend, the ingest lock guarding
// it (nil when the backend has none) and its cleanup
func newBackend(ctx context.Context, cfg *config.Config) (patientstore.Backend, patientstore.LockChecker, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendCouchbase:
		client, err := couchbase.NewClient(cfg.CouchbaseURL, cfg.CouchbaseUsername, cfg.CouchbasePassword, cfg.CouchbaseBucket)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to Couchbase: %w", err)
		}
		if err := client.EnsurePrimaryIndex(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}

		backend := patientstore.NewCouchbaseBackend(client)
		if cfg.SeedDemoPatients {
			if err := seedIfEmpty(ctx, backend); err != nil {
				_ = client.Close()
				return nil, nil, nil, err
			}
		}
		return backend, client, client.Close, nil

	case config.BackendFHIR:
		client := fhir.NewClient(cfg.FHIRBaseURL, cfg.FHIRTimeout)
		return patientstore.NewFHIRBackend(client, patientstore.DefaultFHIRPageSize), nil, noop, nil

	default:
		var seed []models.Patient
		if cfg.SeedDemoPatients {
			seed = patientstore.DemoPatients()
		}
		return patientstore.NewMemoryBackend(seed...), nil, noop, nil
	}
}

// seedIfEmpty stores the demo patients in an empty bucket
func seedIfEmpty(ctx context.Context, backend *patientstore.CouchbaseBackend) error {
	existing, err := backend.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, p := range patientstore.DemoPatients() {
		if err := backend.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed demo patients: %w", err)
		}
	}
	log.Info().Int("patients", len(patientstore.DemoPatients())).Msg("Seeded demo patients")
	return nil
}
