/*
scenario.go Loads a controller layout from a json config. Profiles are declared once in a
library and referenced by name from the layout, so every node built from the same name
shares one profile.
*/

package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

var (
	// ErrUnknownProfile is returned when the layout names a profile missing from the library.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrDuplicateProfile is returned when two library entries of one kind share a name.
	ErrDuplicateProfile = errors.New("duplicate profile")
)

// Scenario is the on-disk description of a controller.
type Scenario struct {
	Controller ControllerConfig `json:"Controller"`
	Profiles   Library          `json:"Profiles"`
	Networks   []NetworkLayout  `json:"Networks"`
}

// ControllerConfig holds the scheduler settings.
type ControllerConfig struct {
	RefreshRateSeconds float64  `json:"RefreshRateSeconds"`
	TimeMultiplier     *float64 `json:"TimeMultiplier"`
}

// Library declares the profiles available to the layout.
type Library struct {
	Networks  []profile.Network  `json:"Networks"`
	Sources   []profile.Source   `json:"Sources"`
	Circuits  []profile.Circuit  `json:"Circuits"`
	Consumers []profile.Consumer `json:"Consumers"`
}

// NetworkLayout places a network and its sources.
type NetworkLayout struct {
	Profile    string         `json:"Profile"`
	SwitchedOn *bool          `json:"SwitchedOn"`
	Sources    []SourceLayout `json:"Sources"`
}

// SourceLayout places a source and its circuits. AmpHoursUsed sets the
// initial draw, clamped to the profile capacity.
type SourceLayout struct {
	Profile      string          `json:"Profile"`
	SwitchedOn   *bool           `json:"SwitchedOn"`
	AmpHoursUsed float64         `json:"AmpHoursUsed"`
	Circuits     []CircuitLayout `json:"Circuits"`
}

// CircuitLayout places a circuit and its consumers.
type CircuitLayout struct {
	Profile    string           `json:"Profile"`
	SwitchedOn *bool            `json:"SwitchedOn"`
	Consumers  []ConsumerLayout `json:"Consumers"`
}

// ConsumerLayout places a consumer.
type ConsumerLayout struct {
	Profile    string `json:"Profile"`
	SwitchedOn *bool  `json:"SwitchedOn"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	jsonConfig, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(jsonConfig)
}

// Parse decodes a scenario and validates its profile library.
func Parse(jsonConfig []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := json.Unmarshal(jsonConfig, s); err != nil {
		return nil, err
	}
	if _, err := s.Profiles.index(); err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshRate converts the configured seconds to a duration.
func (c ControllerConfig) RefreshRate() time.Duration {
	return time.Duration(c.RefreshRateSeconds * float64(time.Second))
}

// Multiplier is the configured time multiplier, 1 when omitted.
func (c ControllerConfig) Multiplier() float64 {
	if c.TimeMultiplier == nil {
		return 1
	}
	return *c.TimeMultiplier
}

// Build constructs a controller from the scenario. A nil sampler or log falls
// back to the controller defaults.
func (s *Scenario) Build(sampler ecc.Sampler, log *logrus.Entry) (*ecc.Controller, error) {
	idx, err := s.Profiles.index()
	if err != nil {
		return nil, err
	}

	ctrl, err := ecc.New(ecc.Config{
		RefreshRate:    s.Controller.RefreshRate(),
		TimeMultiplier: s.Controller.Multiplier(),
		Sampler:        sampler,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	for _, nl := range s.Networks {
		n, err := idx.network(nl)
		if err != nil {
			return nil, err
		}
		ctrl.AddNetwork(n)
	}
	return ctrl, nil
}

type index struct {
	networks  map[string]*profile.Network
	sources   map[string]*profile.Source
	circuits  map[string]*profile.Circuit
	consumers map[string]*profile.Consumer
}

func (l *Library) index() (index, error) {
	idx := index{
		networks:  make(map[string]*profile.Network),
		sources:   make(map[string]*profile.Source),
		circuits:  make(map[string]*profile.Circuit),
		consumers: make(map[string]*profile.Consumer),
	}

	for i := range l.Networks {
		p := &l.Networks[i]
		if err := add(idx.networks, p.Name, p, p.Validate); err != nil {
			return index{}, err
		}
	}
	for i := range l.Sources {
		p := &l.Sources[i]
		if err := add(idx.sources, p.Name, p, p.Validate); err != nil {
			return index{}, err
		}
	}
	for i := range l.Circuits {
		p := &l.Circuits[i]
		if err := add(idx.circuits, p.Name, p, p.Validate); err != nil {
			return index{}, err
		}
	}
	for i := range l.Consumers {
		p := &l.Consumers[i]
		if err := add(idx.consumers, p.Name, p, p.Validate); err != nil {
			return index{}, err
		}
	}
	return idx, nil
}

func add[T any](m map[string]*T, name string, p *T, validate func() error) error {
	if err := validate(); err != nil {
		return err
	}
	if _, ok := m[name]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateProfile, name)
	}
	m[name] = p
	return nil
}

func lookup[T any](m map[string]*T, name string) (*T, error) {
	p, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProfile, name)
	}
	return p, nil
}

func switchedOn(b *bool) bool {
	return b == nil || *b
}

func (idx index) network(nl NetworkLayout) (*ecc.Network, error) {
	p, err := lookup(idx.networks, nl.Profile)
	if err != nil {
		return nil, err
	}
	n, err := ecc.NewNetwork(p)
	if err != nil {
		return nil, err
	}
	n.SetSwitchedOn(switchedOn(nl.SwitchedOn))

	for _, sl := range nl.Sources {
		s, err := idx.source(sl)
		if err != nil {
			return nil, err
		}
		n.AddPowerSource(s)
	}
	return n, nil
}

func (idx index) source(sl SourceLayout) (*ecc.PowerSource, error) {
	p, err := lookup(idx.sources, sl.Profile)
	if err != nil {
		return nil, err
	}
	s, err := ecc.NewPowerSource(p)
	if err != nil {
		return nil, err
	}
	s.SetSwitchedOn(switchedOn(sl.SwitchedOn))
	s.SetAmpHoursUsed(sl.AmpHoursUsed)

	for _, cl := range sl.Circuits {
		c, err := idx.circuit(cl)
		if err != nil {
			return nil, err
		}
		s.AddCircuit(c)
	}
	return s, nil
}

func (idx index) circuit(cl CircuitLayout) (*ecc.Circuit, error) {
	p, err := lookup(idx.circuits, cl.Profile)
	if err != nil {
		return nil, err
	}
	c, err := ecc.NewCircuit(p)
	if err != nil {
		return nil, err
	}
	c.SetSwitchedOn(switchedOn(cl.SwitchedOn))

	for _, ul := range cl.Consumers {
		up, err := lookup(idx.consumers, ul.Profile)
		if err != nil {
			return nil, err
		}
		u, err := ecc.NewConsumer(up)
		if err != nil {
			return nil, err
		}
		u.SetSwitchedOn(switchedOn(ul.SwitchedOn))
		c.AddConsumer(u)
	}
	return c, nil
}
