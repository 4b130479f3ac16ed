package views

import (
	"context"
	"sync"

	"stealthcompany.com/patientrecords/internal/models"
	"stealthcompany.com/patientrecords/internal/patientstore"
)

// fakeService records calls and lets tests control when they resolve
type fakeService struct {
	feed *patientstore.Feed

	mu          sync.Mutex
	addCalls    int
	addGate     chan struct{}
	addErr      error
	searchCalls []string
	searchFn    func(ctx context.Context, query string) ([]models.Patient, error)
}

func newFakeService(initial ...models.Patient) *fakeService {
	return &fakeService{feed: patientstore.NewFeed(initial)}
}

func (f *fakeService) Subscribe(fn func([]models.Patient)) *patientstore.Subscription {
	return f.feed.Subscribe(fn)
}

func (f *fakeService) AddPatient(ctx context.Context, draft models.PatientDraft) (models.Patient, error) {
	f.mu.Lock()
	f.addCalls++
	gate := f.addGate
	err := f.addErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Patient{}, ctx.Err()
		}
	}
	if err != nil {
		return models.Patient{}, err
	}
	return draft.ToPatient("generated-id"), nil
}

func (f *fakeService) SearchPatients(ctx context.Context, query string) ([]models.Patient, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	fn := f.searchFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	return nil, nil
}

func (f *fakeService) adds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls
}

func (f *fakeService) searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}
