package patientstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"stealthcompany.com/patientrecords/internal/models"
)

// MemoryBackend keeps patients in process memory, in insertion order
type MemoryBackend struct {
	mu       sync.RWMutex
	patients []models.Patient
	index    map[string]int
}

// NewMemoryBackend creates a backend holding the given patients
func NewMemoryBackend(seed ...models.Patient) *MemoryBackend {
	mb := &MemoryBackend{index: make(map[string]int)}
	for _, p := range seed {
		mb.index[p.ID] = len(mb.patients)
		mb.patients = append(mb.patients, p)
	}
	return mb
}

// Create appends a patient; IDs must be unique
func (mb *MemoryBackend) Create(_ context.Context, p models.Patient) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.index[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPatientExists, p.ID)
	}
	mb.index[p.ID] = len(mb.patients)
	mb.patients = append(mb.patients, p)
	return nil
}

// List returns every patient
func (mb *MemoryBackend) List(_ context.Context) ([]models.Patient, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return slices.Clone(mb.patients), nil
}

// Search returns patients whose name, MRN or email contains the query,
// ignoring case. A blank query matches everyone.
func (mb *MemoryBackend) Search(ctx context.Context, query string) ([]models.Patient, error) {
	q := normalizeQuery(query)
	if q == "" {
		return mb.List(ctx)
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	results := []models.Patient{}
	for _, p := range mb.patients {
		if matchesQuery(p, q) {
			results = append(results, p)
		}
	}
	return results, nil
}

// DemoPatients returns the records the demo deployment starts with
func DemoPatients() []models.Patient {
	return []models.Patient{
		{
			ID:          "demo-patient-001",
			FirstName:   "John",
			LastName:    "Smith",
			DateOfBirth: "1985-03-15",
			Gender:      "Male",
			Phone:       "(555) 123-4567",
			Email:       "john.smith@example.com",
			Address:     &models.Address{Street: "123 Main Street", City: "Springfield", State: "IL", Zip: "62701"},
			MRN:         "MRN001234",
			InsuranceID: "INS-001",
		},
		{
			ID:          "demo-patient-002",
			FirstName:   "Sarah",
			LastName:    "Johnson",
			DateOfBirth: "1992-07-22",
			Gender:      "Female",
			Phone:       "(555) 987-6543",
			Email:       "sarah.johnson@example.com",
			Address:     &models.Address{Street: "456 Oak Avenue", City: "Chicago", State: "IL", Zip: "60601"},
			MRN:         "MRN005678",
			InsuranceID: "INS-002",
		},
		{
			ID:          "demo-patient-003",
			FirstName:   "Michael",
			LastName:    "Brown",
			DateOfBirth: "1978-11-08",
			Gender:      "Male",
			MRN:         "MRN009012",
		},
	}
}
