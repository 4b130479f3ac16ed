package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"stealthcompany.com/patientrecords/internal/metrics"
)

// SetupRoutes configures and returns the HTTP router
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add metrics middleware to all routes
	r.Use(metrics.MetricsMiddleware)

	// Operational endpoints stay outside the session middleware
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// JSON API and live feed
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/patients", s.ListPatientsHandler).Methods(http.MethodGet)
	api.HandleFunc("/patients", s.CreatePatientHandler).Methods(http.MethodPost)
	r.HandleFunc("/ws/patients", s.PatientFeedHandler).Methods(http.MethodGet)

	// Pages, backed by per-session views
	pages := r.NewRoute().Subrouter()
	pages.Use(s.sessions.Middleware)
	pages.HandleFunc("/", s.IndexHandler).Methods(http.MethodGet)
	pages.HandleFunc("/patients", s.PatientsPageHandler).Methods(http.MethodGet)
	pages.HandleFunc("/patients/new", s.AddPatientPageHandler).Methods(http.MethodGet)
	pages.HandleFunc("/patients/new", s.AddPatientSubmitHandler).Methods(http.MethodPost)
	pages.HandleFunc("/patients/new/reset", s.ResetDraftHandler).Methods(http.MethodPost)
	pages.HandleFunc("/patients/{id}/vitals", s.ViewVitalsHandler).Methods(http.MethodPost)

	return r
}
