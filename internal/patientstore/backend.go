package patientstore

import (
	"context"
	"errors"
	"strings"

	"stealthcompany.com/patientrecords/internal/models"
)

// ErrPatientExists is returned by Create when the ID is already stored
var ErrPatientExists = errors.New("patient already exists")

// Backend is the storage behind the data service. Patients handed to Create
// already carry their service-assigned ID.
type Backend interface {
	Create(ctx context.Context, p models.Patient) error
	List(ctx context.Context) ([]models.Patient, error)
	Search(ctx context.Context, query string) ([]models.Patient, error)
}

// Upserter is implemented by backends that can overwrite a stored patient.
// Ingest uses it so a repeated import refreshes records instead of failing.
type Upserter interface {
	Upsert(ctx context.Context, p models.Patient) error
}

// normalizeQuery trims and lowercases a search query
func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// matchesQuery reports whether a normalized query is a substring of the
// patient's name, full name, MRN or email, ignoring case
func matchesQuery(p models.Patient, q string) bool {
	fields := []string{p.FirstName, p.LastName, p.FullName(), p.MRN, p.Email}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
