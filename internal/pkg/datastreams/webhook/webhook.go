package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

// Handler posts status snapshots to <URL>/status and trips to <URL>/overloads.
type Handler struct {
	pid      uuid.UUID
	system   msg.Publisher
	inbox    <-chan msg.Msg
	config   config
	client   *http.Client
	stop     chan bool
	stopOnce *sync.Once
	log      *logrus.Entry
}

type config struct {
	URL string `json:"URL"`
	// StatusInterval is the minimum time between status posts, in milliseconds.
	// Trips are always posted.
	StatusInterval int `json:"StatusInterval"`
	Timeout        int `json:"Timeout"`
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
	if cfg.URL == "" {
		return Handler{}, fmt.Errorf("%w: webhook URL is required", ecc.ErrInvalidConfig)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1000
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
		client:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Millisecond},
		stop:     make(chan bool),
		stopOnce: &sync.Once{},
		log:      log.WithField("component", "Webhook").WithField("url", cfg.URL),
	}, nil
}

// Stop ends Process.
func (h Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Process posts until stopped.
func (h Handler) Process() {
	h.log.Info("process started")
	interval := time.Duration(h.config.StatusInterval) * time.Millisecond
	var last time.Time
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if m.Topic() == msg.Status {
				now := time.Now()
				if now.Sub(last) < interval {
					continue
				}
				last = now
			}
			if err := h.post(m); err != nil {
				h.log.WithError(err).Warn("unable to post")
			}
		case <-h.stop:
			break loop
		}
	}
	h.system.Unsubscribe(h.pid)
	h.log.Info("process shutdown")
}

func (h Handler) post(m msg.Msg) error {
	var target string
	switch m.Payload().(type) {
	case ecc.Status:
		target = h.config.URL + "/status"
	case ecc.Trip:
		target = h.config.URL + "/overloads"
	default:
		return nil
	}

	data, err := json.Marshal(m.Payload())
	if err != nil {
		return err
	}
	resp, err := h.client.Post(target, "application/json; charset=UTF-8", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %v: %v", target, resp.Status)
	}
	return nil
}
