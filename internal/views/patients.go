package views

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
	"stealthcompany.com/patientrecords/internal/patientstore"
)

// PatientsView owns the search query and the filtered projection of the patient feed.
//
// Each search carries a token from a monotonically increasing counter; a
// response is applied only if its token is still the latest, so a slow
// earlier search can never overwrite a newer result. Clearing the query
// and feed emissions also advance the token.
type PatientsView struct {
	svc PatientService

	ctx    context.Context
	cancel context.CancelFunc
	calls  inflight

	mu       sync.Mutex
	sub      *patientstore.Subscription
	patients []models.Patient
	filtered []models.Patient
	query    string
	token    uint64
	closed   bool
}

// NewPatientsView creates a view; call Init to start following the feed
func NewPatientsView(svc PatientService) *PatientsView {
	ctx, cancel := context.WithCancel(context.Background())
	return &PatientsView{
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Init subscribes to the patient feed. Calling it again is a no-op.
func (v *PatientsView) Init() {
	v.mu.Lock()
	if v.sub != nil || v.closed {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	// Subscribe delivers the current snapshot synchronously, so it must run without v.mu held.
	sub := v.svc.Subscribe(v.onPatients)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.sub != nil {
		sub.Unsubscribe()
		return
	}
	v.sub = sub
}

// onPatients replaces the full list. With no active query the filtered list
// follows it; otherwise the active search is re-run against the new data.
func (v *PatientsView) onPatients(patients []models.Patient) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.patients = patients

	if strings.TrimSpace(v.query) == "" {
		v.token++
		v.filtered = slices.Clone(patients)
		return
	}
	v.searchLocked(v.query)
}

// SetQuery updates the search text. A blank query restores the full list
// immediately; anything else is delegated to the service.
func (v *PatientsView) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.query = query

	if strings.TrimSpace(query) == "" {
		v.token++
		v.filtered = slices.Clone(v.patients)
		return
	}
	v.searchLocked(query)
}

func (v *PatientsView) searchLocked(query string) {
	v.token++
	token := v.token

	v.calls.add()
	go func() {
		defer v.calls.done()

		results, err := v.svc.SearchPatients(v.ctx, query)

		v.mu.Lock()
		defer v.mu.Unlock()

		if v.closed {
			return
		}
		if token != v.token {
			metrics.RecordStaleSearchResponse()
			log.Debug().
				Str("query", query).
				Uint64("token", token).
				Uint64("latest", v.token).
				Msg("Discarding stale search response")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("query", query).Msg("Error searching patients")
			return
		}
		v.filtered = results
	}()
}

// Query returns the current search text
func (v *PatientsView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Patients returns the last full-collection emission
func (v *PatientsView) Patients() []models.Patient {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.patients)
}

// Filtered returns the list currently on display
func (v *PatientsView) Filtered() []models.Patient {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.filtered)
}

// Cards returns the display cards for the filtered list
func (v *PatientsView) Cards() []PatientCard {
	filtered := v.Filtered()
	cards := make([]PatientCard, 0, len(filtered))
	for _, p := range filtered {
		cards = append(cards, NewPatientCard(p))
	}
	return cards
}

// ViewVitals records a request to open a patient's vitals
func (v *PatientsView) ViewVitals(patientID string) {
	log.Info().Str("patient_id", patientID).Msg("Viewing vitals for patient")
}

// Wait blocks until every in-flight search has resolved
func (v *PatientsView) Wait() {
	v.calls.wait()
}

// Settle is Wait bounded by ctx
func (v *PatientsView) Settle(ctx context.Context) error {
	return v.calls.settle(ctx)
}

// Close unsubscribes from the feed and cancels pending searches
func (v *PatientsView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	sub.Unsubscribe()
	v.cancel()
	v.calls.wait()
}
