package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
)

const contentType = "application/fhir+json"

// Client talks to a FHIR R4 server over its REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Bundle represents a FHIR bundle response
type Bundle struct {
	ResourceType string `json:"resourceType"`
	Type         string `json:"type"`
	Total        int    `json:"total,omitempty"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

// NewClient creates a new FHIR client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchPatients reads up to count Patient resources
func (fc *Client) FetchPatients(ctx context.Context, count int) ([]models.Patient, error) {
	params := url.Values{}
	params.Set("_count", strconv.Itoa(count))

	bundle, err := fc.fetchBundle(ctx, "Patient", params)
	if err != nil {
		return nil, err
	}
	return patientsFromBundle(bundle), nil
}

// SearchPatients runs a server-side name search
func (fc *Client) SearchPatients(ctx context.Context, name string) ([]models.Patient, error) {
	params := url.Values{}
	params.Set("name", name)

	bundle, err := fc.fetchBundle(ctx, "Patient", params)
	if err != nil {
		return nil, err
	}
	return patientsFromBundle(bundle), nil
}

// PutPatient creates or replaces Patient/{id} so the caller keeps control of the ID
func (fc *Client) PutPatient(ctx context.Context, p models.Patient) error {
	startTime := time.Now()

	body, err := json.Marshal(ToResource(p))
	if err != nil {
		return fmt.Errorf("failed to encode patient %s: %w", p.ID, err)
	}

	endpoint := fmt.Sprintf("%s/Patient/%s", fc.baseURL, url.PathEscape(p.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		metrics.RecordFHIRHTTP("Patient", startTime, 0)
		return fmt.Errorf("failed to put patient %s: %w", p.ID, err)
	}
	defer fc.closeBody(resp)

	metrics.RecordFHIRHTTP("Patient", startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("FHIR server returned status %d for Patient/%s", resp.StatusCode, p.ID)
	}
	return nil
}

// fetchBundle performs a search on a resource type and decodes the bundle
func (fc *Client) fetchBundle(ctx context.Context, resourceType string, params url.Values) (*Bundle, error) {
	startTime := time.Now()
	endpoint := fmt.Sprintf("%s/%s?%s", fc.baseURL, resourceType, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", contentType)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		metrics.RecordFHIRHTTP(resourceType, startTime, 0)
		return nil, fmt.Errorf("failed to fetch %s: %w", resourceType, err)
	}
	defer fc.closeBody(resp)

	metrics.RecordFHIRHTTP(resourceType, startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FHIR server returned status %d for %s", resp.StatusCode, resourceType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", resourceType, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse FHIR bundle for %s: %w", resourceType, err)
	}

	return &bundle, nil
}

func (fc *Client) closeBody(resp *http.Response) {
	if closeErr := resp.Body.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("Failed to close response body")
	}
}

// patientsFromBundle decodes every Patient entry, skipping anything else
func patientsFromBundle(bundle *Bundle) []models.Patient {
	patients := make([]models.Patient, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		var res PatientResource
		if err := json.Unmarshal(entry.Resource, &res); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed bundle entry")
			continue
		}
		if res.ResourceType != "Patient" {
			continue
		}
		patients = append(patients, res.ToPatient())
	}
	return patients
}
