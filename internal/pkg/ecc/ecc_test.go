package ecc

import (
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

const tolerance = 1e-9

// fixedSampler always returns the same value, making parasitic drain deterministic.
type fixedSampler float64

func (f fixedSampler) Float64() float64 { return float64(f) }

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	assert.Assert(t, math.Abs(got-want) < tolerance, "got %v, want %v", got, want)
}

type testTree struct {
	ctrl     *Controller
	network  *Network
	source   *PowerSource
	circuit  *Circuit
	consumer *Consumer
}

// newTestTree builds Network -> 12V/10Ah Source -> 5A Circuit -> Consumer, every
// switch on, RefreshRate 0 and TimeMultiplier 1.
func newTestTree(t *testing.T, watts float64) testTree {
	t.Helper()
	return newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: watts},
	)
}

func newTestTreeWith(t *testing.T, sp *profile.Source, cp *profile.Circuit, up *profile.Consumer) testTree {
	t.Helper()
	consumer, err := NewConsumer(up)
	assert.NilError(t, err)

	circuit, err := NewCircuit(cp, consumer)
	assert.NilError(t, err)

	source, err := NewPowerSource(sp, circuit)
	assert.NilError(t, err)

	network, err := NewNetwork(&profile.Network{Base: profile.Base{Name: "Flashlight"}}, source)
	assert.NilError(t, err)

	ctrl, err := New(Config{TimeMultiplier: 1, Sampler: fixedSampler(0), Logger: quietLogger()}, network)
	assert.NilError(t, err)

	return testTree{ctrl, network, source, circuit, consumer}
}
