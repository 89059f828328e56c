package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/datastreams"
	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

const (
	statusQoS   byte = 0
	overloadQoS byte = 1
)

// Handler mirrors status snapshots and trips onto MQTT topics.
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
	Broker   string `json:"Broker"`
	ClientID string `json:"ClientID"`
	// Prefix is the first topic level, "ecc" when empty.
	Prefix string `json:"Prefix"`
	// Timeout bounds connect and publish acknowledgements, in milliseconds.
	Timeout int `json:"Timeout"`
}

// publisher is the part of mqtt.Client the handler uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
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
	if cfg.Prefix == "" {
		cfg.Prefix = "ecc"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1000
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Handler{}, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "ecc-" + pid.String()
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
		log:      log.WithField("component", "MQTT client"),
	}, nil
}

// Stop ends Process.
func (h Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h Handler) timeout() time.Duration {
	return time.Duration(h.config.Timeout) * time.Millisecond
}

// Process connects to the broker and publishes until stopped.
func (h Handler) Process() {
	opts := mqtt.NewClientOptions().
		AddBroker(h.config.Broker).
		SetClientID(h.config.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			h.log.WithError(err).Warn("connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(h.timeout()) || token.Error() != nil {
		h.log.WithError(token.Error()).Error("unable to connect to mqtt broker")
		h.system.Unsubscribe(h.pid)
		return
	}
	defer client.Disconnect(250)
	h.run(client)
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
			h.publish(pub, m)
		case <-h.stop:
			break loop
		}
	}
	h.system.Unsubscribe(h.pid)
	h.log.Info("process shutdown")
}

func (h Handler) publish(pub publisher, m msg.Msg) {
	var topic string
	var qos byte
	var retained bool
	switch payload := m.Payload().(type) {
	case ecc.Status:
		topic, qos, retained = h.config.Prefix+"/status", statusQoS, true
	case ecc.Trip:
		topic, qos = h.config.Prefix+"/overload/"+payload.Circuit.String(), overloadQoS
	default:
		return
	}

	data, err := json.Marshal(m.Payload())
	if err != nil {
		h.log.WithError(err).Warn("unable to encode message")
		return
	}

	token := pub.Publish(topic, qos, retained, data)
	if qos == 0 {
		return
	}
	if !token.WaitTimeout(h.timeout()) {
		h.log.WithField("topic", topic).Warn("publish not acknowledged")
		return
	}
	if err := token.Error(); err != nil {
		h.log.WithError(err).WithField("topic", topic).Warn("unable to publish to mqtt broker")
	}
}
