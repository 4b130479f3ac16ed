package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/patientrecords/internal/config"
	"stealthcompany.com/patientrecords/internal/couchbase"
	"stealthcompany.com/patientrecords/internal/fhir"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/orchestrator"
	"stealthcompany.com/patientrecords/internal/patientstore"
	"stealthcompany.com/patientrecords/pkg/zerolog_config"
)

const lockTTL = 30 * time.Minute

func main() {
	config.LoadDotEnv()

	rootCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import FHIR Patient resources into Couchbase",
		RunE:  runIngest,
	}
	rootCmd.Flags().Int("count", 500, "Number of patients to fetch")
	rootCmd.Flags().String("fhir-base-url", "", "FHIR R4 base URL (defaults to FHIR_BASE_URL)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	count, _ := cmd.Flags().GetInt("count")
	baseURL, _ := cmd.Flags().GetString("fhir-base-url")
	if baseURL == "" {
		baseURL = cfg.FHIRBaseURL
	}

	// Set app prefix
	zerolog_config.SetAppPrefix("patientrecords-ingest")

	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, cfg.LogIndex, cfg.LogLevel); err != nil {
		return err
	}

	log.Info().
		Str("fhir_base_url", baseURL).
		Int("count", count).
		Msg("Starting patientrecords ingest")

	metrics.Configure(cfg.BusinessMetrics, false)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signals := orchestrator.NewSignalHandler()
	defer signals.Stop()
	signals.HandleSignals(ctx, cancel)

	dbClient, err := couchbase.NewClient(cfg.CouchbaseURL, cfg.CouchbaseUsername, cfg.CouchbasePassword, cfg.CouchbaseBucket)
	if err != nil {
		return fmt.Errorf("failed to connect to Couchbase: %w", err)
	}
	defer dbClient.Close()

	if err := dbClient.EnsurePrimaryIndex(ctx); err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	locker := dbClient.NewLocker(fmt.Sprintf("ingest@%s/%d", hostname, os.Getpid()), lockTTL)

	// Lock the database before ingestion
	log.Info().Msg("Locking database for ingestion")
	if err := locker.Lock(ctx); err != nil {
		if errors.Is(err, couchbase.ErrLocked) {
			log.Warn().Msg("Another ingest is running, exiting")
		}
		return err
	}

	// Ensure unlock happens even if ingestion fails
	defer func() {
		log.Info().Msg("Unlocking database after ingestion")
		if err := locker.Unlock(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to unlock database")
		}
	}()

	fhirClient := fhir.NewClient(baseURL, cfg.FHIRTimeout)
	backend := patientstore.NewCouchbaseBackend(dbClient)

	result, err := patientstore.Ingest(ctx, fhirClient, backend, count)
	if err != nil {
		return fmt.Errorf("failed to ingest patients: %w", err)
	}

	log.Info().
		Int("stored", result.Stored).
		Int("failed", result.Failed).
		Msg("FHIR patient ingestion completed successfully")
	return nil
}
