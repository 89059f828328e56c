package ecc

import (
	"fmt"

	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

// Consumer is a device on a circuit.
type Consumer struct {
	node
	profile  *profile.Consumer
	hasPower bool
}

// NewConsumer returns a switched on Consumer built from a validated profile.
func NewConsumer(p *profile.Consumer) (*Consumer, error) {
	if p == nil {
		return nil, fmt.Errorf("consumer: %w", ErrMissingProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}
	n, err := newNode()
	if err != nil {
		return nil, err
	}
	return &Consumer{node: n, profile: p}, nil
}

// Name is an accessor for the profile name.
func (c *Consumer) Name() string {
	return c.profile.Name
}

// Profile returns the consumer's profile.
func (c *Consumer) Profile() *profile.Consumer {
	return c.profile
}

// HasPower reports whether the last evaluation delivered power to the consumer.
func (c *Consumer) HasPower() bool {
	return c.hasPower
}

// Operating is true when the consumer is switched on and has power.
func (c *Consumer) Operating() bool {
	return c.switchedOn && c.hasPower
}

// parasiticDrain samples the standby draw in watts from the profile range.
func (c *Consumer) parasiticDrain(s Sampler) float64 {
	lo, hi := c.profile.ParasiticDrainWattsMin, c.profile.ParasiticDrainWattsMax
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*s.Float64()
}
