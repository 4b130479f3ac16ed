package views

import (
	"context"
	"sync"

	"stealthcompany.com/patientrecords/internal/models"
	"stealthcompany.com/patientrecords/internal/patientstore"
)

// PatientService is what the views need from the patient data service
type PatientService interface {
	Subscribe(fn func([]models.Patient)) *patientstore.Subscription
	AddPatient(ctx context.Context, draft models.PatientDraft) (models.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]models.Patient, error)
}

// inflight counts running service calls. Waiters block on a channel that is
// closed when the count drops to zero, so a waiter that gives up leaves
// nothing running behind it.
type inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

var alreadyIdle = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (f *inflight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
}

// idleCh returns a channel closed once no call is running
func (f *inflight) idleCh() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		return alreadyIdle
	}
	return f.idle
}

func (f *inflight) wait() {
	<-f.idleCh()
}

// settle is wait bounded by ctx
func (f *inflight) settle(ctx context.Context) error {
	select {
	case <-f.idleCh():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
