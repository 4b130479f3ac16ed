package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	patientAddsTotal         *prometheus.CounterVec
	patientSearchesTotal     *prometheus.CounterVec
	patientSearchDuration    prometheus.Histogram
	staleSearchResponses     prometheus.Counter
	feedSubscribers          prometheus.Gauge
	fhirHTTPRequestsTotal    *prometheus.CounterVec
	fhirHTTPRequestDuration  *prometheus.HistogramVec
	fhirIngestedPatients     *prometheus.CounterVec
	patientMetricsInitialize sync.Once
)

// initializePatientMetrics creates and registers the domain collectors
func initializePatientMetrics() {
	patientMetricsInitialize.Do(func() {
		patientAddsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patient_adds_total",
				Help: "Total number of add-patient operations",
			},
			[]string{"result"}, // "success", "invalid", "failed"
		)

		patientSearchesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patient_searches_total",
				Help: "Total number of patient searches",
			},
			[]string{"result"},
		)

		patientSearchDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "patient_search_duration_seconds",
				Help:    "Time spent resolving patient searches",
				Buckets: prometheus.DefBuckets,
			},
		)

		staleSearchResponses = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "patient_search_stale_responses_total",
				Help: "Search responses discarded because a newer query superseded them",
			},
		)

		feedSubscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "patient_feed_subscribers",
				Help: "Number of active subscriptions to the patient feed",
			},
		)

		fhirHTTPRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhir_http_requests_total",
				Help: "Total number of HTTP requests to the FHIR server",
			},
			[]string{"endpoint", "status_code"},
		)

		fhirHTTPRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhir_http_request_duration_seconds",
				Help:    "Time spent making HTTP requests to the FHIR server",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)

		fhirIngestedPatients = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhir_ingested_patients_total",
				Help: "Patients processed by FHIR ingestion",
			},
			[]string{"status"}, // "stored", "failed"
		)

		GetRegistry().MustRegister(
			patientAddsTotal,
			patientSearchesTotal,
			patientSearchDuration,
			staleSearchResponses,
			feedSubscribers,
			fhirHTTPRequestsTotal,
			fhirHTTPRequestDuration,
			fhirIngestedPatients,
		)
	})
}

// RecordPatientAdd records the outcome of an add-patient call
func RecordPatientAdd(result string) {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	patientAddsTotal.WithLabelValues(result).Inc()
}

// RecordPatientSearch records the outcome and latency of a search call
func RecordPatientSearch(result string, startTime time.Time) {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	patientSearchesTotal.WithLabelValues(result).Inc()
	patientSearchDuration.Observe(time.Since(startTime).Seconds())
}

// RecordStaleSearchResponse counts a discarded out-of-order search response
func RecordStaleSearchResponse() {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	staleSearchResponses.Inc()
}

// AddFeedSubscribers adjusts the feed subscriber gauge by delta
func AddFeedSubscribers(delta int) {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	feedSubscribers.Add(float64(delta))
}

// RecordFHIRHTTP records metrics for a request to the FHIR server
func RecordFHIRHTTP(endpoint string, startTime time.Time, statusCode int) {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	fhirHTTPRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Inc()
	fhirHTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
}

// RecordIngestion records how many fetched patients were stored or failed
func RecordIngestion(stored, failed int) {
	if !BusinessEnabled() {
		return
	}
	initializePatientMetrics()

	fhirIngestedPatients.WithLabelValues("stored").Add(float64(stored))
	fhirIngestedPatients.WithLabelValues("failed").Add(float64(failed))
}
