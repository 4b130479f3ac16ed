package patientstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
)

// PatientSource supplies patients to import
type PatientSource interface {
	FetchPatients(ctx context.Context, count int) ([]models.Patient, error)
}

// IngestResult summarizes an import run
type IngestResult struct {
	Fetched int
	Stored  int
	Failed  int
}

// Ingest copies up to count patients from src into dst. Patients without an
// ID or that dst refuses are counted as failed; the run carries on. When dst
// is an Upserter, patients already stored are overwritten.
func Ingest(ctx context.Context, src PatientSource, dst Backend, count int) (IngestResult, error) {
	startTime := time.Now()

	store := dst.Create
	if u, ok := dst.(Upserter); ok {
		store = u.Upsert
	}

	patients, err := src.FetchPatients(ctx, count)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to fetch patients: %w", err)
	}

	result := IngestResult{Fetched: len(patients)}
	log.Info().Int("count", result.Fetched).Msg("Fetched patients for ingestion")

	for i, p := range patients {
		if err := ctx.Err(); err != nil {
			metrics.RecordIngestion(result.Stored, result.Failed)
			return result, err
		}

		if p.ID == "" {
			log.Warn().Int("index", i).Msg("Skipping patient without id")
			result.Failed++
			continue
		}

		if err := store(ctx, p); err != nil {
			log.Error().
				Err(err).
				Str("patient_id", p.ID).
				Msg("Failed to store patient")
			result.Failed++
			continue
		}
		result.Stored++

		if (i+1)%100 == 0 {
			log.Info().
				Int("processed", i+1).
				Int("total", result.Fetched).
				Msg("Progress update")
		}
	}

	metrics.RecordIngestion(result.Stored, result.Failed)

	log.Info().
		Int("total", result.Fetched).
		Int("stored", result.Stored).
		Int("failed", result.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("Completed ingestion")

	return result, nil
}
