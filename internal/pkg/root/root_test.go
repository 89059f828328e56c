package root

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/msg"
	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

type fakeRecorder struct {
	mux      sync.Mutex
	passes   int
	statuses int
	trips    []ecc.Trip
}

func (r *fakeRecorder) ObservePass() {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.passes++
}

func (r *fakeRecorder) ObserveStatus(ecc.Status) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.statuses++
}

func (r *fakeRecorder) ObserveTrip(t ecc.Trip) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.trips = append(r.trips, t)
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

// newController builds Flashlight -> 12V/10Ah Battery -> 5A Main -> Lamp.
func newController(t *testing.T, watts float64) *ecc.Controller {
	t.Helper()
	consumer, err := ecc.NewConsumer(&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: watts})
	assert.NilError(t, err)
	circuit, err := ecc.NewCircuit(&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5}, consumer)
	assert.NilError(t, err)
	source, err := ecc.NewPowerSource(&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10}, circuit)
	assert.NilError(t, err)
	network, err := ecc.NewNetwork(&profile.Network{Base: profile.Base{Name: "Flashlight"}}, source)
	assert.NilError(t, err)
	ctrl, err := ecc.New(ecc.Config{TimeMultiplier: 1, Logger: quietLogger()}, network)
	assert.NilError(t, err)
	return ctrl
}

// newSystem starts a system whose ticker never fires during the test.
func newSystem(t *testing.T, watts float64, rec Recorder) *System {
	t.Helper()
	sys, err := New(newController(t, watts), Config{TickRate: time.Hour, Logger: quietLogger(), Recorder: rec})
	assert.NilError(t, err)
	go sys.Process()
	t.Cleanup(func() {
		sys.Stop()
		<-sys.Done()
	})
	return sys
}

func receive(t *testing.T, ch <-chan msg.Msg) msg.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return msg.Msg{}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, Config{TickRate: time.Second})
	assert.Assert(t, errors.Is(err, ecc.ErrInvalidConfig))

	_, err = New(newController(t, 0), Config{})
	assert.Assert(t, errors.Is(err, ecc.ErrInvalidConfig))
}

func TestAdvancePublishesStatus(t *testing.T) {
	rec := &fakeRecorder{}
	sys := newSystem(t, 24, rec)

	ch, err := sys.Subscribe(uuid.New(), msg.Status)
	assert.NilError(t, err)

	assert.NilError(t, sys.Advance(time.Hour))

	m := receive(t, ch)
	assert.Equal(t, m.PID(), sys.PID())
	status, ok := m.Payload().(ecc.Status)
	assert.Assert(t, ok)
	assert.Equal(t, status.Networks[0].Sources[0].Circuits[0].LoadWatts, 24.0)

	rec.mux.Lock()
	defer rec.mux.Unlock()
	assert.Equal(t, rec.passes, 1)
	assert.Equal(t, rec.statuses, 1)
}

func TestOverloadIsPublished(t *testing.T) {
	rec := &fakeRecorder{}
	sys := newSystem(t, 100, rec)

	ch, err := sys.Subscribe(uuid.New(), msg.Overload)
	assert.NilError(t, err)

	assert.NilError(t, sys.Advance(time.Second))

	trip, ok := receive(t, ch).Payload().(ecc.Trip)
	assert.Assert(t, ok)
	assert.Equal(t, trip.CircuitName, "Main")
	assert.Equal(t, trip.LoadWatts, 100.0)

	rec.mux.Lock()
	defer rec.mux.Unlock()
	assert.Equal(t, len(rec.trips), 1)
}

func TestSetSwitch(t *testing.T) {
	sys := newSystem(t, 24, nil)

	pid, err := sys.Resolve("Flashlight", "Battery", "Main", "Lamp")
	assert.NilError(t, err)

	assert.NilError(t, sys.SetSwitch(pid, false))
	assert.NilError(t, sys.Advance(time.Second))

	status, err := sys.Status()
	assert.NilError(t, err)
	lamp := status.Networks[0].Sources[0].Circuits[0].Consumers[0]
	assert.Assert(t, !lamp.SwitchedOn)
	assert.Assert(t, !lamp.Operating)
	assert.Assert(t, !lamp.HasPower)

	on, err := sys.Toggle(pid)
	assert.NilError(t, err)
	assert.Assert(t, on)
}

func TestUnknownNode(t *testing.T) {
	sys := newSystem(t, 24, nil)

	err := sys.SetSwitch(uuid.New(), false)
	assert.Assert(t, errors.Is(err, ErrUnknownNode))

	_, err = sys.Toggle(uuid.New())
	assert.Assert(t, errors.Is(err, ErrUnknownNode))

	_, err = sys.Resolve("Torch")
	assert.Assert(t, errors.Is(err, ErrUnknownNode))
}

func TestSetTimeMultiplier(t *testing.T) {
	sys := newSystem(t, 24, nil)

	ch, err := sys.Subscribe(uuid.New(), msg.Config)
	assert.NilError(t, err)

	assert.Assert(t, errors.Is(sys.SetTimeMultiplier(-1), ecc.ErrInvalidConfig))
	assert.NilError(t, sys.SetTimeMultiplier(60))

	// the startup publish may or may not have been observed
	var settings Settings
	for settings.TimeMultiplier != 60 {
		settings = receive(t, ch).Payload().(Settings)
	}

	got, err := sys.Settings()
	assert.NilError(t, err)
	assert.Equal(t, got.TimeMultiplier, 60.0)
}

func TestTickAdvancesByMeasuredTime(t *testing.T) {
	var mux sync.Mutex
	clock := time.Unix(0, 0)
	now := func() time.Time {
		mux.Lock()
		defer mux.Unlock()
		clock = clock.Add(time.Hour)
		return clock
	}

	sys, err := New(newController(t, 24), Config{TickRate: time.Millisecond, Logger: quietLogger(), Clock: now})
	assert.NilError(t, err)
	ch, err := sys.Subscribe(uuid.New(), msg.Status)
	assert.NilError(t, err)

	go sys.Process()
	defer sys.Stop()

	status := receive(t, ch).Payload().(ecc.Status)
	// each tick reads one simulated hour at 2A
	assert.Equal(t, status.Networks[0].Sources[0].AmpHoursUsed, 2.0)
}

func TestCommandsAfterStop(t *testing.T) {
	sys, err := New(newController(t, 24), Config{TickRate: time.Hour, Logger: quietLogger()})
	assert.NilError(t, err)

	ch, err := sys.Subscribe(uuid.New(), msg.Status)
	assert.NilError(t, err)

	go sys.Process()
	sys.Stop()
	sys.Stop()
	<-sys.Done()

	_, err = sys.Status()
	assert.Assert(t, errors.Is(err, ErrStopped))
	assert.Assert(t, errors.Is(sys.SetSwitch(uuid.New(), true), ErrStopped))

	_, ok := <-ch
	assert.Assert(t, !ok)
}
