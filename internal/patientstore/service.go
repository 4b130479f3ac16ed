package patientstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
)

// ErrInvalidDraft is returned by AddPatient when a required field is empty
var ErrInvalidDraft = errors.New("patient draft is missing required fields")

// DataService is the single source of truth for patient records: it assigns
// IDs, persists through a Backend and broadcasts the full collection on its Feed.
type DataService struct {
	backend Backend
	feed    *Feed
	latency time.Duration
	newID   func() string

	// publishMu spans List and Publish so a list taken before a later
	// write is never published after it
	publishMu sync.Mutex
}

// Option configures a DataService
type Option func(*DataService)

// WithLatency delays every call by d, the way a remote service would
func WithLatency(d time.Duration) Option {
	return func(s *DataService) { s.latency = d }
}

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(fn func() string) Option {
	return func(s *DataService) { s.newID = fn }
}

// NewDataService loads the current collection from the backend and seeds the feed with it
func NewDataService(ctx context.Context, backend Backend, opts ...Option) (*DataService, error) {
	s := &DataService{
		backend: backend,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	initial, err := backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	s.feed = NewFeed(initial)

	log.Info().Int("patients", len(initial)).Msg("Patient data service ready")
	return s, nil
}

// Feed returns the patients$ feed
func (s *DataService) Feed() *Feed {
	return s.feed
}

// Subscribe registers fn on the patient feed
func (s *DataService) Subscribe(fn func([]models.Patient)) *Subscription {
	return s.feed.Subscribe(fn)
}

// AddPatient assigns an ID to the draft, stores it and publishes the new collection
func (s *DataService) AddPatient(ctx context.Context, draft models.PatientDraft) (models.Patient, error) {
	if err := draft.Validate(); err != nil {
		metrics.RecordPatientAdd("invalid")
		return models.Patient{}, fmt.Errorf("%w: %v", ErrInvalidDraft, draft.MissingFields())
	}

	if err := s.wait(ctx); err != nil {
		metrics.RecordPatientAdd("failed")
		return models.Patient{}, err
	}

	patient := draft.ToPatient(s.newID())
	if err := s.backend.Create(ctx, patient); err != nil {
		metrics.RecordPatientAdd("failed")
		return models.Patient{}, fmt.Errorf("failed to store patient: %w", err)
	}

	log.Info().
		Str("patient_id", patient.ID).
		Str("mrn", patient.MRN).
		Msg("Patient added")
	metrics.RecordPatientAdd("success")

	s.publishLatest(ctx, patient)
	return patient, nil
}

// SearchPatients returns the patients matching query as defined by the backend
func (s *DataService) SearchPatients(ctx context.Context, query string) ([]models.Patient, error) {
	start := time.Now()

	if err := s.wait(ctx); err != nil {
		metrics.RecordPatientSearch("cancelled", start)
		return nil, err
	}

	results, err := s.backend.Search(ctx, query)
	if err != nil {
		metrics.RecordPatientSearch("failed", start)
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}

	log.Debug().
		Str("query", query).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Patient search resolved")
	metrics.RecordPatientSearch("success", start)

	return results, nil
}

// Refresh reloads the collection from the backend and publishes it when it
// differs from the current snapshot
func (s *DataService) Refresh(ctx context.Context) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	patients, err := s.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh patients: %w", err)
	}
	if samePatients(patients, s.feed.Snapshot()) {
		return nil
	}

	log.Info().Int("patients", len(patients)).Msg("Patient collection changed in backend")
	s.feed.Publish(patients)
	return nil
}

// LockChecker reports whether an ingest currently holds the backend
type LockChecker interface {
	CheckLockStatus(ctx context.Context) (bool, error)
}

// StartRefresh runs Refresh every interval until ctx is done. Ticks are
// skipped while lock reports an ingest in progress; lock may be nil.
func (s *DataService) StartRefresh(ctx context.Context, interval time.Duration, lock LockChecker) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refreshUnlessLocked(ctx, lock)
			}
		}
	}()
}

// refreshUnlessLocked reports whether a refresh was attempted
func (s *DataService) refreshUnlessLocked(ctx context.Context, lock LockChecker) bool {
	if lock != nil {
		locked, err := lock.CheckLockStatus(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to check ingest lock, skipping refresh")
			return false
		}
		if locked {
			log.Debug().Msg("Ingest in progress, skipping refresh")
			return false
		}
	}

	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Periodic refresh failed")
	}
	return true
}

// publishLatest emits the full collection after a write. If the backend
// cannot be listed the new patient is appended to the last snapshot.
func (s *DataService) publishLatest(ctx context.Context, added models.Patient) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	patients, err := s.backend.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to reload patients after add, appending to last snapshot")
		patients = append(s.feed.Snapshot(), added)
	}
	s.feed.Publish(patients)
}

func samePatients(a, b []models.Patient) bool {
	return slices.EqualFunc(a, b, func(x, y models.Patient) bool {
		return reflect.DeepEqual(x, y)
	})
}

// wait applies the simulated latency, honouring cancellation
func (s *DataService) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
