package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/patientrecords/internal/models"
)

const feedWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// feedMessage is one patients$ emission on the wire
type feedMessage struct {
	Type     string           `json:"type"`
	Count    int              `json:"count"`
	Patients []models.Patient `json:"patients"`
}

// PatientFeedHandler streams every full-collection emission to a websocket client.
// A slow client only ever receives the most recent snapshot.
func (s *Server) PatientFeedHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer ws.Close()

	latest := make(chan []models.Patient, 1)
	sub := s.svc.Subscribe(func(patients []models.Patient) {
		select {
		case <-latest:
		default:
		}
		latest <- patients
	})
	defer sub.Unsubscribe()

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Patient feed client connected")

	// Reads only detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Info().Str("remote_addr", r.RemoteAddr).Msg("Patient feed client disconnected")
			return
		case patients := <-latest:
			if patients == nil {
				patients = []models.Patient{}
			}
			_ = ws.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := ws.WriteJSON(feedMessage{Type: "patients", Count: len(patients), Patients: patients}); err != nil {
				log.Warn().Err(err).Msg("Failed to write patient feed message")
				return
			}
		}
	}
}
