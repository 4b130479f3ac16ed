package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/views"
)

const (
	// SessionCookieName identifies a browser's view session
	SessionCookieName = "patientrecords_session"

	// DefaultSessionIdleTimeout is how long an unused session keeps its views
	DefaultSessionIdleTimeout = 30 * time.Minute
)

type sessionKey struct{}

// Session holds one browser's view instances
type Session struct {
	ID         string
	Patients   *views.PatientsView
	AddPatient *views.AddPatientView

	lastRequest time.Time
}

func (s *Session) close() {
	s.Patients.Close()
	s.AddPatient.Close()
}

// SessionManager creates per-browser views on first request and tears
// them down once they have been idle for longer than the timeout
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	svc         views.PatientService
	idleTimeout time.Duration
	viewOpts    []views.AddPatientOption
	newID       func() string
}

// NewSessionManager creates a session manager over the patient service
func NewSessionManager(svc views.PatientService, idleTimeout time.Duration, opts ...views.AddPatientOption) *SessionManager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		svc:         svc,
		idleTimeout: idleTimeout,
		viewOpts:    opts,
		newID:       uuid.NewString,
	}
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown. created reports whether a new session was made.
func (sm *SessionManager) GetOrCreate(id string) (session *Session, created bool) {
	sm.mu.Lock()
	if s, exists := sm.sessions[id]; exists && id != "" {
		s.lastRequest = time.Now()
		sm.mu.Unlock()
		return s, false
	}
	sm.mu.Unlock()

	s := &Session{
		ID:          sm.newID(),
		Patients:    views.NewPatientsView(sm.svc),
		AddPatient:  views.NewAddPatientView(sm.svc, sm.viewOpts...),
		lastRequest: time.Now(),
	}
	s.Patients.Init()

	sm.mu.Lock()
	sm.sessions[s.ID] = s
	count := len(sm.sessions)
	sm.mu.Unlock()

	log.Info().
		Str("session", s.ID).
		Int("active_sessions", count).
		Msg("Session created")
	return s, true
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Reap closes every session idle for longer than the timeout and returns how many went cold
func (sm *SessionManager) Reap() int {
	sm.mu.Lock()
	var cold []*Session
	for id, s := range sm.sessions {
		if time.Since(s.lastRequest) > sm.idleTimeout {
			cold = append(cold, s)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, s := range cold {
		log.Info().Str("session", s.ID).Msg("Session going cold due to inactivity")
		s.close()
	}
	return len(cold)
}

// StartReaper runs Reap every interval until ctx is done
func (sm *SessionManager) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.Reap()
			}
		}
	}()
}

// CloseAll tears down every session
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	all := make([]*Session, 0, len(sm.sessions))
	for id, s := range sm.sessions {
		all = append(all, s)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, s := range all {
		s.close()
	}
	log.Info().Int("sessions", len(all)).Msg("All sessions closed")
}

// Middleware attaches the caller's session to the request context,
// issuing a cookie for new sessions
func (sm *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			id = cookie.Value
		}

		session, created := sm.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    session.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// SessionFromContext returns the session set by Middleware
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
