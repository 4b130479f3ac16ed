package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/models"
)

// SuccessBannerDuration is how long the success banner stays visible
const SuccessBannerDuration = 5 * time.Second

// AddPatientErrorMessage is shown when the service rejects a submission
const AddPatientErrorMessage = "Unable to add patient. Please try again."

// AddPatientState is a point-in-time copy of the form for rendering
type AddPatientState struct {
	Draft          models.PatientDraft
	Submitting     bool
	CanSubmit      bool
	SuccessMessage string
	ErrorMessage   string
}

// AddPatientView owns the add-patient draft and its submission lifecycle
type AddPatientView struct {
	svc         PatientService
	bannerDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	calls  inflight

	mu             sync.Mutex
	draft          models.PatientDraft
	submitting     bool
	successMessage string
	errorMessage   string
	bannerTimer    *time.Timer
	bannerGen      uint64
	closed         bool
}

// AddPatientOption configures an AddPatientView
type AddPatientOption func(*AddPatientView)

// WithBannerDelay overrides SuccessBannerDuration
func WithBannerDelay(d time.Duration) AddPatientOption {
	return func(v *AddPatientView) { v.bannerDelay = d }
}

// NewAddPatientView creates a view with an empty draft
func NewAddPatientView(svc PatientService, opts ...AddPatientOption) *AddPatientView {
	ctx, cancel := context.WithCancel(context.Background())
	v := &AddPatientView{
		svc:         svc,
		bannerDelay: SuccessBannerDuration,
		ctx:         ctx,
		cancel:      cancel,
		draft:       models.EmptyDraft(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Draft returns a copy of the current draft
func (v *AddPatientView) Draft() models.PatientDraft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// SetDraft replaces the draft with the form's current values
func (v *AddPatientView) SetDraft(d models.PatientDraft) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = d
}

// CanSubmit is false while a submission is in flight or a mandatory field is empty
func (v *AddPatientView) CanSubmit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canSubmitLocked()
}

func (v *AddPatientView) canSubmitLocked() bool {
	return !v.closed && !v.submitting && v.draft.IsValid()
}

// Submit sends the draft to the service in the background. It returns false
// and does nothing when CanSubmit is false.
func (v *AddPatientView) Submit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.canSubmitLocked() {
		return false
	}
	v.submitting = true
	v.errorMessage = ""
	draft := v.draft

	v.calls.add()
	go v.submit(draft)
	return true
}

func (v *AddPatientView) submit(draft models.PatientDraft) {
	defer v.calls.done()

	patient, err := v.svc.AddPatient(v.ctx, draft)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.submitting = false

	if err != nil {
		log.Error().
			Err(err).
			Str("mrn", draft.MRN).
			Msg("Error adding patient")
		v.errorMessage = AddPatientErrorMessage
		return
	}

	v.draft = models.EmptyDraft()
	v.showBannerLocked(fmt.Sprintf("%s %s has been added to the system.", patient.FirstName, patient.LastName))
}

// showBannerLocked displays msg and schedules it to be hidden. A newer
// banner supersedes the pending hide of an older one.
func (v *AddPatientView) showBannerLocked(msg string) {
	if v.bannerTimer != nil {
		v.bannerTimer.Stop()
	}
	v.bannerGen++
	gen := v.bannerGen
	v.successMessage = msg

	v.bannerTimer = time.AfterFunc(v.bannerDelay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed || gen != v.bannerGen {
			return
		}
		v.successMessage = ""
		v.bannerTimer = nil
	})
}

// Reset restores the empty draft regardless of submission state
func (v *AddPatientView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = models.EmptyDraft()
	v.errorMessage = ""
}

// State returns a snapshot for rendering
func (v *AddPatientView) State() AddPatientState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return AddPatientState{
		Draft:          v.draft,
		Submitting:     v.submitting,
		CanSubmit:      v.canSubmitLocked(),
		SuccessMessage: v.successMessage,
		ErrorMessage:   v.errorMessage,
	}
}

// Wait blocks until every in-flight submission has resolved
func (v *AddPatientView) Wait() {
	v.calls.wait()
}

// Settle is Wait bounded by ctx
func (v *AddPatientView) Settle(ctx context.Context) error {
	return v.calls.settle(ctx)
}

// Close cancels in-flight submissions and releases the banner timer.
// Results arriving after Close are dropped.
func (v *AddPatientView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	if v.bannerTimer != nil {
		v.bannerTimer.Stop()
		v.bannerTimer = nil
	}
	v.mu.Unlock()

	v.cancel()
	v.calls.wait()
}
