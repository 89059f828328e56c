/*
controller.go The electrical circuit controller. Owns a set of networks and runs the
cascading evaluation when enough time has accumulated. The controller is not safe for
concurrent use; the caller owns the cadence and the goroutine.
*/

package ecc

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sampler supplies uniform values in [0, 1) for parasitic drain. *rand.Rand
// satisfies it.
type Sampler interface {
	Float64() float64
}

// Config holds the controller settings.
type Config struct {
	// RefreshRate is the simulated time between evaluations. Zero or negative
	// evaluates on every Advance.
	RefreshRate time.Duration
	// TimeMultiplier scales energy drawn per second of elapsed time.
	TimeMultiplier float64
	// Sampler defaults to a time seeded math/rand source.
	Sampler Sampler
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Entry
}

// Controller runs the cascading power-flow evaluation over its networks.
type Controller struct {
	refreshRate    time.Duration
	timeMultiplier float64
	accumulated    time.Duration
	passes         uint64
	networks       []*Network
	observers      []observer
	sampler        Sampler
	log            *logrus.Entry
}

// New returns a configured Controller owning the networks in order.
func New(cfg Config, networks ...*Network) (*Controller, error) {
	if err := validMultiplier(cfg.TimeMultiplier); err != nil {
		return nil, err
	}

	sampler := cfg.Sampler
	if sampler == nil {
		sampler = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Controller{
		refreshRate:    cfg.RefreshRate,
		timeMultiplier: cfg.TimeMultiplier,
		sampler:        sampler,
		log:            log.WithField("component", "ECC"),
	}
	for _, n := range networks {
		c.AddNetwork(n)
	}
	return c, nil
}

// RefreshRate is the simulated time between evaluations.
func (c *Controller) RefreshRate() time.Duration {
	return c.refreshRate
}

// SetRefreshRate changes the evaluation cadence. Time already accumulated is kept.
func (c *Controller) SetRefreshRate(d time.Duration) {
	c.refreshRate = d
}

// TimeMultiplier scales energy drawn per elapsed second.
func (c *Controller) TimeMultiplier() float64 {
	return c.timeMultiplier
}

// SetTimeMultiplier changes the energy time scale. Negative or non-finite
// values are rejected.
func (c *Controller) SetTimeMultiplier(m float64) error {
	if err := validMultiplier(m); err != nil {
		return err
	}
	c.timeMultiplier = m
	return nil
}

// Advance accumulates elapsed real time and, once the total reaches the
// refresh rate, evaluates the networks over the accumulated time and resets the
// counter. Trips from the pass are dispatched to observers before returning.
// Negative deltas are ignored.
func (c *Controller) Advance(delta time.Duration) []Trip {
	if delta > 0 {
		c.accumulated += delta
	}
	if c.accumulated < c.refreshRate {
		return nil
	}

	elapsed := c.accumulated
	c.accumulated = 0

	trips := c.Evaluate(elapsed)
	c.notify(trips)
	return trips
}

// Pending is the time accumulated since the last evaluation.
func (c *Controller) Pending() time.Duration {
	return c.accumulated
}

// Passes is the number of evaluation passes run so far.
func (c *Controller) Passes() uint64 {
	return c.passes
}

// AddNetwork appends a network. Must not be called during an evaluation.
func (c *Controller) AddNetwork(n *Network) {
	if n == nil {
		return
	}
	c.networks = append(c.networks, n)
}

// RemoveNetwork removes the network with the given pid.
func (c *Controller) RemoveNetwork(pid uuid.UUID) bool {
	var ok bool
	c.networks, ok = removeByPID(c.networks, pid)
	return ok
}

func validMultiplier(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return fmt.Errorf("%w: TimeMultiplier must be finite and >= 0, got %v", ErrInvalidConfig, m)
	}
	return nil
}
