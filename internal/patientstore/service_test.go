package patientstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/patientrecords/internal/models"
)

// fakeBackend wraps a memory backend and lets tests inject failures
type fakeBackend struct {
	*MemoryBackend

	mu          sync.Mutex
	createCalls int
	createErr   error
	listErr     error
	searchErr   error

	listHeld    chan struct{}
	listRelease chan struct{}
}

func newFakeBackend(seed ...models.Patient) *fakeBackend {
	return &fakeBackend{MemoryBackend: NewMemoryBackend(seed...)}
}

func (f *fakeBackend) Create(ctx context.Context, p models.Patient) error {
	f.mu.Lock()
	f.createCalls++
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryBackend.Create(ctx, p)
}

func (f *fakeBackend) List(ctx context.Context) ([]models.Patient, error) {
	f.mu.Lock()
	err := f.listErr
	held, release := f.listHeld, f.listRelease
	f.listHeld, f.listRelease = nil, nil
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	patients, err := f.MemoryBackend.List(ctx)
	if held != nil {
		close(held)
		<-release
	}
	return patients, err
}

// holdNextList makes the next List read the backend and then block until
// release is closed. held is closed once that read has happened.
func (f *fakeBackend) holdNextList() (held chan struct{}, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHeld = make(chan struct{})
	f.listRelease = make(chan struct{})
	return f.listHeld, f.listRelease
}

type fakeLock struct {
	locked bool
	err    error
	checks int
}

func (l *fakeLock) CheckLockStatus(context.Context) (bool, error) {
	l.checks++
	return l.locked, l.err
}

func (f *fakeBackend) Search(ctx context.Context, query string) ([]models.Patient, error) {
	f.mu.Lock()
	err := f.searchErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryBackend.Search(ctx, query)
}

func samLee() models.PatientDraft {
	d := models.EmptyDraft()
	d.FirstName = "Sam"
	d.LastName = "Lee"
	d.DateOfBirth = "1985-01-01"
	d.Gender = "Other"
	d.MRN = "M1"
	return d
}

func TestAddPatientAssignsIDAndPublishes(t *testing.T) {
	backend := newFakeBackend(DemoPatients()...)
	svc, err := NewDataService(context.Background(), backend, WithIDGenerator(func() string { return "fixed-id" }))
	require.NoError(t, err)

	rec := &recorder{}
	sub := svc.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	patient, err := svc.AddPatient(context.Background(), samLee())

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", patient.ID)
	assert.Equal(t, "Sam", patient.FirstName)
	assert.Equal(t, 1, backend.createCalls)

	emissions := rec.emissions()
	require.Len(t, emissions, 2)
	assert.Len(t, emissions[0], 3)
	require.Len(t, emissions[1], 4)
	assert.Equal(t, patient, emissions[1][3])
}

func TestAddPatientRejectsInvalidDraft(t *testing.T) {
	backend := newFakeBackend()
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	draft := samLee()
	draft.MRN = ""
	_, err = svc.AddPatient(context.Background(), draft)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDraft))
	assert.Contains(t, err.Error(), "mrn")
	assert.Equal(t, 0, backend.createCalls)
}

func TestAddPatientBackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("disk full")
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	_, err = svc.AddPatient(context.Background(), samLee())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidDraft))
	assert.Empty(t, svc.Feed().Snapshot())
}

func TestAddPatientFallsBackToSnapshotWhenListFails(t *testing.T) {
	backend := newFakeBackend(DemoPatients()...)
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	backend.listErr = errors.New("unavailable")
	patient, err := svc.AddPatient(context.Background(), samLee())

	require.NoError(t, err)
	snapshot := svc.Feed().Snapshot()
	require.Len(t, snapshot, 4)
	assert.Equal(t, patient.ID, snapshot[3].ID)
}

func TestAddPatientGeneratesUUID(t *testing.T) {
	svc, err := NewDataService(context.Background(), newFakeBackend())
	require.NoError(t, err)

	first, err := svc.AddPatient(context.Background(), samLee())
	require.NoError(t, err)
	second, err := svc.AddPatient(context.Background(), samLee())
	require.NoError(t, err)

	assert.Len(t, first.ID, 36)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSearchPatientsExample(t *testing.T) {
	jane := models.Patient{ID: "jane", FirstName: "Jane", LastName: "Doe", MRN: "MRN4242"}
	svc, err := NewDataService(context.Background(), newFakeBackend(append(DemoPatients(), jane)...))
	require.NoError(t, err)

	results, err := svc.SearchPatients(context.Background(), "Doe")

	require.NoError(t, err)
	assert.Equal(t, []models.Patient{jane}, results)
}

func TestSearchPatientsFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.searchErr = errors.New("timeout")
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	_, err = svc.SearchPatients(context.Background(), "x")
	assert.ErrorContains(t, err, "timeout")
}

func TestLatencyHonoursCancellation(t *testing.T) {
	svc, err := NewDataService(context.Background(), newFakeBackend(), WithLatency(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.SearchPatients(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.AddPatient(ctx, samLee())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDataServiceListFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = errors.New("down")

	_, err := NewDataService(context.Background(), backend)
	assert.Error(t, err)
}

func TestRefreshPublishesBackendState(t *testing.T) {
	backend := newFakeBackend()
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	require.NoError(t, backend.MemoryBackend.Create(context.Background(), DemoPatients()[0]))
	require.NoError(t, svc.Refresh(context.Background()))

	assert.Len(t, svc.Feed().Snapshot(), 1)
}

func TestConcurrentAddsPublishNewestCollection(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	svc, err := NewDataService(ctx, backend)
	require.NoError(t, err)

	held, release := backend.holdNextList()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.AddPatient(ctx, samLee())
		assert.NoError(t, err)
	}()
	<-held

	wg.Add(1)
	go func() {
		defer wg.Done()
		second := samLee()
		second.MRN = "M2"
		_, err := svc.AddPatient(ctx, second)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		stored, _ := backend.MemoryBackend.List(ctx)
		return len(stored) == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	stored, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Len(t, svc.Feed().Snapshot(), 2)
	assert.Equal(t, stored, svc.Feed().Snapshot())
}

func TestRefreshSkipsUnchangedCollection(t *testing.T) {
	svc, err := NewDataService(context.Background(), newFakeBackend(DemoPatients()...))
	require.NoError(t, err)

	rec := &recorder{}
	sub := svc.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	require.NoError(t, svc.Refresh(context.Background()))

	assert.Len(t, rec.emissions(), 1)
}

func TestRefreshFailure(t *testing.T) {
	backend := newFakeBackend()
	svc, err := NewDataService(context.Background(), backend)
	require.NoError(t, err)

	backend.listErr = errors.New("down")
	assert.ErrorContains(t, svc.Refresh(context.Background()), "down")
}

func TestRefreshUnlessLocked(t *testing.T) {
	tests := []struct {
		name        string
		lock        *fakeLock
		wantRefresh bool
	}{
		{name: "No lock checker", lock: nil, wantRefresh: true},
		{name: "Unlocked", lock: &fakeLock{}, wantRefresh: true},
		{name: "Ingest in progress", lock: &fakeLock{locked: true}, wantRefresh: false},
		{name: "Lock check fails", lock: &fakeLock{err: errors.New("timeout")}, wantRefresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			svc, err := NewDataService(context.Background(), backend)
			require.NoError(t, err)
			require.NoError(t, backend.MemoryBackend.Create(context.Background(), DemoPatients()[0]))

			var lock LockChecker
			if tt.lock != nil {
				lock = tt.lock
			}
			refreshed := svc.refreshUnlessLocked(context.Background(), lock)

			assert.Equal(t, tt.wantRefresh, refreshed)
			if tt.wantRefresh {
				assert.Len(t, svc.Feed().Snapshot(), 1)
			} else {
				assert.Empty(t, svc.Feed().Snapshot())
				assert.Equal(t, 1, tt.lock.checks)
			}
		})
	}
}

func TestStartRefreshPicksUpBackendWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := newFakeBackend()
	svc, err := NewDataService(ctx, backend)
	require.NoError(t, err)

	svc.StartRefresh(ctx, 10*time.Millisecond, &fakeLock{})
	require.NoError(t, backend.MemoryBackend.Create(ctx, DemoPatients()[0]))

	assert.Eventually(t, func() bool {
		return len(svc.Feed().Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}
