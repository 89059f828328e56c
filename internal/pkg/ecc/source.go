package ecc

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

// PowerSource is a finite energy supply feeding a set of circuits.
type PowerSource struct {
	node
	profile      *profile.Source
	circuits     []*Circuit
	hasPower     bool
	ampHoursUsed float64
}

// NewPowerSource returns a switched on, fully charged PowerSource owning the
// circuits in order.
func NewPowerSource(p *profile.Source, circuits ...*Circuit) (*PowerSource, error) {
	if p == nil {
		return nil, fmt.Errorf("power source: %w", ErrMissingProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("power source: %w", err)
	}
	n, err := newNode()
	if err != nil {
		return nil, err
	}
	s := &PowerSource{node: n, profile: p}
	for _, c := range circuits {
		s.AddCircuit(c)
	}
	return s, nil
}

// Name is an accessor for the profile name.
func (s *PowerSource) Name() string {
	return s.profile.Name
}

// Profile returns the source's profile.
func (s *PowerSource) Profile() *profile.Source {
	return s.profile
}

// Volts is the profile voltage.
func (s *PowerSource) Volts() float64 {
	return s.profile.Volts
}

// HasPower reports whether the last evaluation found the source able to supply.
func (s *PowerSource) HasPower() bool {
	return s.hasPower
}

// Operating is true when the source is switched on and has power.
func (s *PowerSource) Operating() bool {
	return s.switchedOn && s.hasPower
}

// AmpHourCapacity is the profile capacity.
func (s *PowerSource) AmpHourCapacity() float64 {
	return s.profile.AmpHours
}

// AmpHoursUsed is the charge drawn so far, always within [0, AmpHourCapacity].
func (s *PowerSource) AmpHoursUsed() float64 {
	return s.ampHoursUsed
}

// SetAmpHoursUsed overwrites the drawn charge, clamped into [0, AmpHourCapacity].
// NaN is treated as 0.
func (s *PowerSource) SetAmpHoursUsed(v float64) {
	if math.IsNaN(v) {
		v = 0
	}
	s.ampHoursUsed = math.Max(0, math.Min(v, s.profile.AmpHours))
}

// AmpHoursRemaining is AmpHourCapacity minus AmpHoursUsed.
func (s *PowerSource) AmpHoursRemaining() float64 {
	return s.profile.AmpHours - s.ampHoursUsed
}

// AddCircuit appends a circuit. Must not be called during an evaluation.
func (s *PowerSource) AddCircuit(c *Circuit) {
	if c == nil {
		return
	}
	s.circuits = append(s.circuits, c)
}

// RemoveCircuit removes the circuit with the given pid.
func (s *PowerSource) RemoveCircuit(pid uuid.UUID) bool {
	var ok bool
	s.circuits, ok = removeByPID(s.circuits, pid)
	return ok
}

// Circuits returns a copy of the ordered circuit list.
func (s *PowerSource) Circuits() []*Circuit {
	if s == nil {
		return nil
	}
	return append([]*Circuit(nil), s.circuits...)
}

// FirstCircuit returns the first circuit on the source.
func (s *PowerSource) FirstCircuit() (*Circuit, bool) {
	return s.CircuitByIndex(0)
}

// CircuitCount returns the number of circuits; 0 for a nil source.
func (s *PowerSource) CircuitCount() int {
	if s == nil {
		return 0
	}
	return len(s.circuits)
}

// CircuitByName returns the first circuit whose profile name matches.
func (s *PowerSource) CircuitByName(name string) (*Circuit, bool) {
	if s == nil {
		return nil, false
	}
	for _, c := range s.circuits {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// CircuitByIndex returns the circuit at index i.
func (s *PowerSource) CircuitByIndex(i int) (*Circuit, bool) {
	if s == nil {
		return nil, false
	}
	return byIndex(s.circuits, i)
}
