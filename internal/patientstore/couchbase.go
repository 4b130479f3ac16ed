package patientstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/couchbase"
	"stealthcompany.com/patientrecords/internal/models"
)

// DocumentStore is the slice of the Couchbase client the backend needs
type DocumentStore interface {
	InsertDocument(ctx context.Context, docID string, data interface{}) error
	UpsertDocument(ctx context.Context, docID string, data interface{}) error
	QueryRows(ctx context.Context, statement string, params map[string]interface{}) ([]json.RawMessage, error)
	BucketName() string
}

// patientDocument is the stored shape of a patient in the bucket
type patientDocument struct {
	ResourceType string `json:"resourceType"`
	DocID        string `json:"docId"`
	models.Patient
}

// PatientDocID returns the document key for a patient
func PatientDocID(id string) string {
	return "Patient/" + id
}

// CouchbaseBackend stores patients as JSON documents and searches them with N1QL
type CouchbaseBackend struct {
	store DocumentStore
}

// NewCouchbaseBackend creates a backend over a document store
func NewCouchbaseBackend(store DocumentStore) *CouchbaseBackend {
	return &CouchbaseBackend{store: store}
}

// Create inserts the patient document, failing with ErrPatientExists if the ID is taken
func (cb *CouchbaseBackend) Create(ctx context.Context, p models.Patient) error {
	docID, doc := newPatientDocument(p)
	err := cb.store.InsertDocument(ctx, docID, doc)
	if errors.Is(err, couchbase.ErrDocumentExists) {
		return fmt.Errorf("%w: %s", ErrPatientExists, p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to store patient %s: %w", p.ID, err)
	}
	return nil
}

// Upsert stores the patient document, replacing any existing one
func (cb *CouchbaseBackend) Upsert(ctx context.Context, p models.Patient) error {
	docID, doc := newPatientDocument(p)
	if err := cb.store.UpsertDocument(ctx, docID, doc); err != nil {
		return fmt.Errorf("failed to store patient %s: %w", p.ID, err)
	}
	return nil
}

func newPatientDocument(p models.Patient) (string, patientDocument) {
	docID := PatientDocID(p.ID)
	return docID, patientDocument{
		ResourceType: "Patient",
		DocID:        docID,
		Patient:      p,
	}
}

// List returns every patient ordered by name
func (cb *CouchbaseBackend) List(ctx context.Context) ([]models.Patient, error) {
	statement := fmt.Sprintf(
		"SELECT d.* FROM `%s` AS d WHERE d.resourceType = 'Patient' ORDER BY d.lastName, d.firstName",
		cb.store.BucketName(),
	)
	return cb.query(ctx, statement, nil)
}

// Search matches the query against name, full name, MRN and email with LIKE, ignoring case
func (cb *CouchbaseBackend) Search(ctx context.Context, query string) ([]models.Patient, error) {
	q := normalizeQuery(query)
	if q == "" {
		return cb.List(ctx)
	}

	statement := fmt.Sprintf(
		"SELECT d.* FROM `%s` AS d WHERE d.resourceType = 'Patient' AND ("+
			"LOWER(d.firstName) LIKE $q OR "+
			"LOWER(d.lastName) LIKE $q OR "+
			"LOWER(d.firstName || ' ' || d.lastName) LIKE $q OR "+
			"LOWER(d.mrn) LIKE $q OR "+
			"LOWER(IFMISSINGORNULL(d.email, '')) LIKE $q"+
			") ORDER BY d.lastName, d.firstName",
		cb.store.BucketName(),
	)
	return cb.query(ctx, statement, map[string]interface{}{
		"q": "%" + escapeLike(q) + "%",
	})
}

func (cb *CouchbaseBackend) query(ctx context.Context, statement string, params map[string]interface{}) ([]models.Patient, error) {
	rows, err := cb.store.QueryRows(ctx, statement, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}

	patients := make([]models.Patient, 0, len(rows))
	for _, row := range rows {
		var doc patientDocument
		if err := json.Unmarshal(row, &doc); err != nil {
			log.Warn().Err(err).Msg("Skipping undecodable patient document")
			continue
		}
		patients = append(patients, doc.Patient)
	}
	return patients, nil
}

// escapeLike escapes LIKE wildcards so the query matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
