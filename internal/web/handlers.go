package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/models"
	"stealthcompany.com/patientrecords/internal/patientstore"
	"stealthcompany.com/patientrecords/internal/views"
)

// settleTimeout bounds how long a page request waits for its view to finish a service call
const settleTimeout = 10 * time.Second

type pageData struct {
	Title  string
	Active string
	Footer views.Footer
}

type patientsPage struct {
	pageData
	Query string
	Cards []views.PatientCard
	Total int
}

type addPatientPage struct {
	pageData
	State   views.AddPatientState
	Genders []string
	Missing []string
}

// Server serves the patient pages, JSON API and live feed
type Server struct {
	svc      views.PatientService
	sessions *SessionManager
	renderer *Renderer
	footer   views.Footer
}

// NewServer wires the handlers over the patient service and session manager
func NewServer(svc views.PatientService, sessions *SessionManager) (*Server, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		svc:      svc,
		sessions: sessions,
		renderer: renderer,
		footer:   views.NewFooter(),
	}, nil
}

func (s *Server) page(title, active string) pageData {
	return pageData{Title: title, Active: active, Footer: s.footer}
}

// IndexHandler sends visitors to the patient list
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/patients", http.StatusSeeOther)
}

// PatientsPageHandler renders the patient list, applying ?q= to the session's search
func (s *Server) PatientsPageHandler(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	view := session.Patients

	view.SetQuery(r.URL.Query().Get("q"))
	s.settle(r.Context(), view.Settle)

	s.renderer.Render(w, http.StatusOK, "patients", patientsPage{
		pageData: s.page("Patients", "patients"),
		Query:    view.Query(),
		Cards:    view.Cards(),
		Total:    len(view.Patients()),
	})
}

// AddPatientPageHandler renders the add-patient form
func (s *Server) AddPatientPageHandler(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	s.renderAddPatient(w, http.StatusOK, session.AddPatient.State(), nil)
}

// AddPatientSubmitHandler copies the posted form into the draft and submits it
func (s *Server) AddPatientSubmitHandler(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	view := session.AddPatient

	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("Failed to parse add-patient form")
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	draft := draftFromForm(r)
	view.SetDraft(draft)

	if !view.Submit() {
		state := view.State()
		if state.Submitting {
			s.renderAddPatient(w, http.StatusConflict, state, nil)
			return
		}
		log.Warn().
			Strs("missing", draft.MissingFields()).
			Msg("Add-patient form is missing required fields")
		s.renderAddPatient(w, http.StatusUnprocessableEntity, state, draft.MissingFields())
		return
	}

	s.settle(r.Context(), view.Settle)
	http.Redirect(w, r, "/patients/new", http.StatusSeeOther)
}

// ResetDraftHandler clears the add-patient form
func (s *Server) ResetDraftHandler(w http.ResponseWriter, r *http.Request) {
	mustSession(r).AddPatient.Reset()
	http.Redirect(w, r, "/patients/new", http.StatusSeeOther)
}

// ViewVitalsHandler records the vitals request and returns to the list
func (s *Server) ViewVitalsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mustSession(r).Patients.ViewVitals(id)
	http.Redirect(w, r, "/patients", http.StatusSeeOther)
}

// ListPatientsHandler returns patients as JSON, filtered by ?q= when present
func (s *Server) ListPatientsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	patients, err := s.svc.SearchPatients(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search patients")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to search patients",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// CreatePatientHandler adds a patient from a JSON draft
func (s *Server) CreatePatientHandler(w http.ResponseWriter, r *http.Request) {
	var draft models.PatientDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Warn().Err(err).Msg("Failed to decode patient draft")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON format",
		})
		return
	}

	patient, err := s.svc.AddPatient(r.Context(), draft)
	if errors.Is(err, patientstore.ErrInvalidDraft) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Missing required fields",
			"missing": draft.MissingFields(),
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to add patient")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to add patient",
		})
		return
	}

	writeJSON(w, http.StatusCreated, patient)
}

// HealthHandler reports liveness
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) renderAddPatient(w http.ResponseWriter, status int, state views.AddPatientState, missing []string) {
	s.renderer.Render(w, status, "add_patient", addPatientPage{
		pageData: s.page("Add Patient", "add"),
		State:    state,
		Genders:  models.Genders,
		Missing:  missing,
	})
}

// settle waits for the view's in-flight calls so the response reflects them
func (s *Server) settle(ctx context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Msg("Rendering before view settled")
	}
}

func draftFromForm(r *http.Request) models.PatientDraft {
	return models.PatientDraft{
		FirstName:   r.PostFormValue("firstName"),
		LastName:    r.PostFormValue("lastName"),
		DateOfBirth: r.PostFormValue("dateOfBirth"),
		Gender:      r.PostFormValue("gender"),
		Phone:       r.PostFormValue("phone"),
		Email:       r.PostFormValue("email"),
		Address: models.Address{
			Street: r.PostFormValue("street"),
			City:   r.PostFormValue("city"),
			State:  r.PostFormValue("state"),
			Zip:    r.PostFormValue("zip"),
		},
		MRN:         r.PostFormValue("mrn"),
		InsuranceID: r.PostFormValue("insuranceId"),
	}
}

func mustSession(r *http.Request) *Session {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		panic("web: handler mounted without session middleware")
	}
	return session
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
