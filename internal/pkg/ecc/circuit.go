package ecc

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

// Circuit is a current path under one power source. It trips (switches itself
// off) when its load exceeds its capacity.
type Circuit struct {
	node
	profile       *profile.Circuit
	consumers     []*Consumer
	hasPower      bool
	loadWatts     float64
	capacityWatts float64
}

// NewCircuit returns a switched on Circuit owning the consumers in order.
func NewCircuit(p *profile.Circuit, consumers ...*Consumer) (*Circuit, error) {
	if p == nil {
		return nil, fmt.Errorf("circuit: %w", ErrMissingProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("circuit: %w", err)
	}
	n, err := newNode()
	if err != nil {
		return nil, err
	}
	c := &Circuit{node: n, profile: p}
	for _, consumer := range consumers {
		c.AddConsumer(consumer)
	}
	return c, nil
}

// Name is an accessor for the profile name.
func (c *Circuit) Name() string {
	return c.profile.Name
}

// Profile returns the circuit's profile.
func (c *Circuit) Profile() *profile.Circuit {
	return c.profile
}

// HasPower reports whether the last evaluation energized the circuit.
func (c *Circuit) HasPower() bool {
	return c.hasPower
}

// Operating is true when the circuit is switched on and has power.
func (c *Circuit) Operating() bool {
	return c.switchedOn && c.hasPower
}

// LoadWatts is the instantaneous load computed by the last evaluation.
func (c *Circuit) LoadWatts() float64 {
	return c.loadWatts
}

// CapacityWatts is AmperageRating times the owning source's volts, as of the
// last evaluation.
func (c *Circuit) CapacityWatts() float64 {
	return c.capacityWatts
}

// LoadPercent is the load as a percentage of capacity. An unrated circuit
// reports 0.
func (c *Circuit) LoadPercent() float64 {
	if c.capacityWatts <= 0 {
		return 0
	}
	return c.loadWatts / c.capacityWatts * 100
}

// AddConsumer appends a consumer. Must not be called during an evaluation.
func (c *Circuit) AddConsumer(consumer *Consumer) {
	if consumer == nil {
		return
	}
	c.consumers = append(c.consumers, consumer)
}

// RemoveConsumer removes the consumer with the given pid.
func (c *Circuit) RemoveConsumer(pid uuid.UUID) bool {
	var ok bool
	c.consumers, ok = removeByPID(c.consumers, pid)
	return ok
}

// Consumers returns a copy of the ordered consumer list.
func (c *Circuit) Consumers() []*Consumer {
	if c == nil {
		return nil
	}
	return append([]*Consumer(nil), c.consumers...)
}

// FirstConsumer returns the first consumer on the circuit.
func (c *Circuit) FirstConsumer() (*Consumer, bool) {
	return c.ConsumerByIndex(0)
}

// ConsumerCount returns the number of consumers; 0 for a nil circuit.
func (c *Circuit) ConsumerCount() int {
	if c == nil {
		return 0
	}
	return len(c.consumers)
}

// ConsumerByName returns the first consumer whose profile name matches.
func (c *Circuit) ConsumerByName(name string) (*Consumer, bool) {
	if c == nil {
		return nil, false
	}
	for _, consumer := range c.consumers {
		if consumer.Name() == name {
			return consumer, true
		}
	}
	return nil, false
}

// ConsumerByIndex returns the consumer at index i.
func (c *Circuit) ConsumerByIndex(i int) (*Consumer, bool) {
	if c == nil {
		return nil, false
	}
	return byIndex(c.consumers, i)
}
