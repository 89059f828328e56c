package natshandler

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

// Handler mirrors status snapshots and trips onto NATS subjects.
type Handler struct {
	pid      uuid.UUID
	system   msg.Publisher
	inbox    <-chan msg.Msg
	config   config
	stop     chan bool
	stopOnce *sync.Once
	log      *logrus.Entry
}

type config struct {
	Server string `json:"Server"`
	// Prefix is prepended to every subject, "ecc" when empty.
	Prefix string `json:"Prefix"`
}

// publisher is the part of *nats.Conn the handler uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// New reads the handler config and subscribes to the system's broadcasts.
func New(configPath string, system msg.Publisher, log *logrus.Entry) (Handler, error) {
	cfg := config{}
	if err := datastreams.ReadConfig(configPath, &cfg); err != nil {
		return Handler{}, err
	}
	if cfg.Server == "" {
		cfg.Server = nats.DefaultURL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ecc"
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Handler{}, err
	}

	inbox, err := datastreams.Inbox(system, pid, msg.Status, msg.Overload)
	if err != nil {
		return Handler{}, err
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return Handler{
		pid:      pid,
		system:   system,
		inbox:    inbox,
		config:   cfg,
		stop:     make(chan bool),
		stopOnce: &sync.Once{},
		log:      log.WithField("component", "NATS client"),
	}, nil
}

// Stop ends Process.
func (h Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Process connects to the server and publishes until stopped.
func (h Handler) Process() {
	nc, err := nats.Connect(h.config.Server, nats.Name("ecc_core"))
	if err != nil {
		h.log.WithError(err).Error("unable to connect to nats server")
		h.system.Unsubscribe(h.pid)
		return
	}
	defer nc.Close()
	h.run(nc)
}

func (h Handler) run(pub publisher) {
	h.log.Info("process started")
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			subject, data, err := h.encode(m)
			if err != nil {
				h.log.WithError(err).Warn("unable to encode message")
				continue
			}
			if subject == "" {
				continue
			}
			if err := pub.Publish(subject, data); err != nil {
				h.log.WithError(err).WithField("subject", subject).Warn("unable to publish to nats server")
			}
		case <-h.stop:
			break loop
		}
	}
	h.system.Unsubscribe(h.pid)
	h.log.Info("process shutdown")
}

// encode maps a message to its subject: <prefix>.status for snapshots and
// <prefix>.overload.<circuit pid> for trips.
func (h Handler) encode(m msg.Msg) (string, []byte, error) {
	var subject string
	switch payload := m.Payload().(type) {
	case ecc.Status:
		subject = h.config.Prefix + ".status"
	case ecc.Trip:
		subject = h.config.Prefix + ".overload." + payload.Circuit.String()
	default:
		return "", nil, nil
	}
	data, err := json.Marshal(m.Payload())
	return subject, data, err
}
