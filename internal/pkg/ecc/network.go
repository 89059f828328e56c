package ecc

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

// Network is the top level on/off gate over a set of power sources.
type Network struct {
	node
	profile *profile.Network
	sources []*PowerSource
}

// NewNetwork returns a switched on Network owning the sources in order.
func NewNetwork(p *profile.Network, sources ...*PowerSource) (*Network, error) {
	if p == nil {
		return nil, fmt.Errorf("network: %w", ErrMissingProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	n, err := newNode()
	if err != nil {
		return nil, err
	}
	net := &Network{node: n, profile: p}
	for _, s := range sources {
		net.AddPowerSource(s)
	}
	return net, nil
}

// Name is an accessor for the profile name.
func (n *Network) Name() string {
	return n.profile.Name
}

// Profile returns the network's profile.
func (n *Network) Profile() *profile.Network {
	return n.profile
}

// HasPower is the switch position; a network has no upstream.
func (n *Network) HasPower() bool {
	return n.switchedOn
}

// Operating is the switch position.
func (n *Network) Operating() bool {
	return n.switchedOn
}

// AddPowerSource appends a source. Must not be called during an evaluation.
func (n *Network) AddPowerSource(s *PowerSource) {
	if s == nil {
		return
	}
	n.sources = append(n.sources, s)
}

// RemovePowerSource removes the source with the given pid.
func (n *Network) RemovePowerSource(pid uuid.UUID) bool {
	var ok bool
	n.sources, ok = removeByPID(n.sources, pid)
	return ok
}

// PowerSources returns a copy of the ordered source list.
func (n *Network) PowerSources() []*PowerSource {
	if n == nil {
		return nil
	}
	return append([]*PowerSource(nil), n.sources...)
}

// FirstPowerSource returns the first source in the network.
func (n *Network) FirstPowerSource() (*PowerSource, bool) {
	return n.PowerSourceByIndex(0)
}

// PowerSourceCount returns the number of sources; 0 for a nil network.
func (n *Network) PowerSourceCount() int {
	if n == nil {
		return 0
	}
	return len(n.sources)
}

// PowerSourceByName returns the first source whose profile name matches.
func (n *Network) PowerSourceByName(name string) (*PowerSource, bool) {
	if n == nil {
		return nil, false
	}
	for _, s := range n.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// PowerSourceByIndex returns the source at index i.
func (n *Network) PowerSourceByIndex(i int) (*PowerSource, bool) {
	if n == nil {
		return nil, false
	}
	return byIndex(n.sources, i)
}
