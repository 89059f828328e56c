/*
root.go The root node of the controller process. System owns the ecc.Controller and is
the only goroutine that touches it: the tick loop and every command from other goroutines
run through Process.
*/

package root

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
)

var (
	// ErrStopped is returned by commands issued after the process has shut down.
	ErrStopped = errors.New("system stopped")
	// ErrUnknownNode is returned when no node matches a pid or path.
	ErrUnknownNode = errors.New("unknown node")
)

// Recorder receives every evaluation from the process loop.
type Recorder interface {
	ObservePass()
	ObserveStatus(ecc.Status)
	ObserveTrip(ecc.Trip)
}

// Config holds the process settings.
type Config struct {
	// TickRate is the real time between controller advances.
	TickRate time.Duration
	Logger   *logrus.Entry
	Recorder Recorder
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Settings are the controller values published on msg.Config.
type Settings struct {
	RefreshRateSeconds float64 `json:"RefreshRateSeconds"`
	TimeMultiplier     float64 `json:"TimeMultiplier"`
}

// System is the root node of the control system
type System struct {
	pid       uuid.UUID
	ctrl      *ecc.Controller
	publisher *msg.PubSub
	recorder  Recorder
	tickRate  time.Duration
	now       func() time.Time
	log       *logrus.Entry

	inbox    chan func(*ecc.Controller)
	stop     chan bool
	stopOnce sync.Once
	done     chan struct{}
}

// New wraps ctrl in a System. The controller must not be used directly once
// Process has started.
func New(ctrl *ecc.Controller, cfg Config) (*System, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("%w: nil controller", ecc.ErrInvalidConfig)
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("%w: TickRate must be > 0, got %v", ecc.ErrInvalidConfig, cfg.TickRate)
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	s := &System{
		pid:       pid,
		ctrl:      ctrl,
		publisher: msg.NewPublisher(pid),
		recorder:  recorder,
		tickRate:  cfg.TickRate,
		now:       now,
		log:       log.WithField("component", "System"),
		inbox:     make(chan func(*ecc.Controller)),
		stop:      make(chan bool),
		done:      make(chan struct{}),
	}
	ctrl.Subscribe(pid, ecc.ObserverFunc(s.circuitOverloaded))
	return s, nil
}

// PID of the system.
func (s *System) PID() uuid.UUID {
	return s.pid
}

// Subscribe returns a channel on which the topic is broadcast
func (s *System) Subscribe(pid uuid.UUID, topic msg.Topic) (<-chan msg.Msg, error) {
	return s.publisher.Subscribe(pid, topic)
}

// Unsubscribe pid from all topic broadcasts
func (s *System) Unsubscribe(pid uuid.UUID) {
	s.publisher.Unsubscribe(pid)
}

// Process is the primary goroutine of the system. It advances the controller
// by measured real time every tick and runs queued commands between ticks.
func (s *System) Process() {
	s.log.Info("process started")
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	s.publisher.Publish(msg.Config, s.settings(s.ctrl))
	last := s.now()
loop:
	for {
		select {
		case <-ticker.C:
			now := s.now()
			s.advance(now.Sub(last))
			last = now
		case cmd := <-s.inbox:
			cmd(s.ctrl)
		case <-s.stop:
			break loop
		}
	}
	close(s.done)
	s.publisher.Close()
	s.log.Info("process shutdown")
}

// Stop requests shutdown. It is safe to call more than once.
func (s *System) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once Process has returned.
func (s *System) Done() <-chan struct{} {
	return s.done
}

func (s *System) advance(d time.Duration) {
	passes := s.ctrl.Passes()
	s.ctrl.Advance(d)
	if s.ctrl.Passes() == passes {
		return
	}
	s.recorder.ObservePass()
	s.publishStatus(s.ctrl)
}

func (s *System) publishStatus(c *ecc.Controller) {
	status := c.Status()
	s.recorder.ObserveStatus(status)
	s.publisher.Publish(msg.Status, status)
}

// circuitOverloaded runs on the process goroutine, from inside Advance.
func (s *System) circuitOverloaded(t ecc.Trip) {
	s.recorder.ObserveTrip(t)
	s.publisher.Publish(msg.Overload, t)
}

func (s *System) settings(c *ecc.Controller) Settings {
	return Settings{
		RefreshRateSeconds: c.RefreshRate().Seconds(),
		TimeMultiplier:     c.TimeMultiplier(),
	}
}

// do runs fn on the process goroutine and waits for it to finish.
func (s *System) do(fn func(*ecc.Controller)) error {
	finished := make(chan struct{})
	cmd := func(c *ecc.Controller) {
		defer close(finished)
		fn(c)
	}
	select {
	case s.inbox <- cmd:
		<-finished
		return nil
	case <-s.done:
		return ErrStopped
	}
}

type nopRecorder struct{}

func (nopRecorder) ObservePass()             {}
func (nopRecorder) ObserveStatus(ecc.Status) {}
func (nopRecorder) ObserveTrip(ecc.Trip)     {}
