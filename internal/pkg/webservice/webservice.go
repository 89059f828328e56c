package webservice

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
	"github.com/ohowland/ecc_core/internal/pkg/root"
)

// System is the part of root.System the webservice drives.
type System interface {
	msg.Publisher
	Status() (ecc.Status, error)
	SetSwitch(uuid.UUID, bool) error
	Toggle(uuid.UUID) (bool, error)
}

// SwitchControl is the body of PUT /switch/{pid} and the response of both
// switch routes.
type SwitchControl struct {
	PID        uuid.UUID `json:"PID"`
	SwitchedOn bool      `json:"SwitchedOn"`
}

// Server serves the controller over http.
type Server struct {
	system   System
	metrics  http.Handler
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New returns a Server. A nil metrics handler leaves /metrics unrouted.
func New(system System, metrics http.Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		system:  system,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithField("component", "Webservice"),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.StatusHandler).Methods("GET")
	r.HandleFunc("/switch/{pid}", s.SwitchHandler).Methods("PUT")
	r.HandleFunc("/switch/{pid}/toggle", s.ToggleHandler).Methods("POST")
	r.HandleFunc("/overloads", s.OverloadHandler).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}
	return r
}

// StatusHandler writes the latest status snapshot.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.system.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// SwitchHandler sets a node's switch from a SwitchControl body.
func (s *Server) SwitchHandler(w http.ResponseWriter, r *http.Request) {
	pid, err := uuid.Parse(mux.Vars(r)["pid"])
	if err != nil {
		http.Error(w, "malformed UUID", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctrl := SwitchControl{}
	if err := json.Unmarshal(body, &ctrl); err != nil {
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}

	if err := s.system.SetSwitch(pid, ctrl.SwitchedOn); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SwitchControl{PID: pid, SwitchedOn: ctrl.SwitchedOn})
}

// ToggleHandler flips a node's switch.
func (s *Server) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	pid, err := uuid.Parse(mux.Vars(r)["pid"])
	if err != nil {
		http.Error(w, "malformed UUID", http.StatusBadRequest)
		return
	}

	on, err := s.system.Toggle(pid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SwitchControl{PID: pid, SwitchedOn: on})
}

// OverloadHandler upgrades to a websocket and streams every trip as JSON
// until the client goes away or the system stops.
func (s *Server) OverloadHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	pid := uuid.New()
	trips, err := s.system.Subscribe(pid, msg.Overload)
	if err != nil {
		s.log.WithError(err).Warn("overload subscription failed")
		return
	}
	defer s.system.Unsubscribe(pid)

	// the read side only watches for the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case m, ok := <-trips:
			if !ok {
				return
			}
			if err := conn.WriteJSON(m.Payload()); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("malformed JSON")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		s.log.WithError(err).Debug("write failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, root.ErrUnknownNode):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, root.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
