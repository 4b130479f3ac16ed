package patientstore

import (
	"context"
	"fmt"

	"stealthcompany.com/patientrecords/internal/models"
)

// DefaultFHIRPageSize bounds how many patients a List reads from the server
const DefaultFHIRPageSize = 100

// PatientClient is the FHIR client surface the backend needs
type PatientClient interface {
	FetchPatients(ctx context.Context, count int) ([]models.Patient, error)
	SearchPatients(ctx context.Context, name string) ([]models.Patient, error)
	PutPatient(ctx context.Context, p models.Patient) error
}

// FHIRBackend reads and writes Patient resources on a FHIR R4 server
type FHIRBackend struct {
	client   PatientClient
	pageSize int
}

// NewFHIRBackend creates a backend over a FHIR client
func NewFHIRBackend(client PatientClient, pageSize int) *FHIRBackend {
	if pageSize <= 0 {
		pageSize = DefaultFHIRPageSize
	}
	return &FHIRBackend{client: client, pageSize: pageSize}
}

// Create writes Patient/{id}
func (fb *FHIRBackend) Create(ctx context.Context, p models.Patient) error {
	if err := fb.client.PutPatient(ctx, p); err != nil {
		return fmt.Errorf("failed to create FHIR patient: %w", err)
	}
	return nil
}

// List reads the first page of patients
func (fb *FHIRBackend) List(ctx context.Context) ([]models.Patient, error) {
	patients, err := fb.client.FetchPatients(ctx, fb.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list FHIR patients: %w", err)
	}
	return patients, nil
}

// Search delegates to the server's name search; a blank query lists
func (fb *FHIRBackend) Search(ctx context.Context, query string) ([]models.Patient, error) {
	q := normalizeQuery(query)
	if q == "" {
		return fb.List(ctx)
	}

	patients, err := fb.client.SearchPatients(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search FHIR patients: %w", err)
	}
	return patients, nil
}
