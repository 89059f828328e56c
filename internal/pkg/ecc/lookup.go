package ecc

import "github.com/google/uuid"

// Networks returns a copy of the ordered network list.
func (c *Controller) Networks() []*Network {
	return append([]*Network(nil), c.networks...)
}

// FirstNetwork returns the first network.
func (c *Controller) FirstNetwork() (*Network, bool) {
	return c.NetworkByIndex(0)
}

// NetworkCount returns the number of networks.
func (c *Controller) NetworkCount() int {
	return len(c.networks)
}

// NetworkByName returns the first network whose profile name matches.
func (c *Controller) NetworkByName(name string) (*Network, bool) {
	for _, n := range c.networks {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// NetworkByIndex returns the network at index i.
func (c *Controller) NetworkByIndex(i int) (*Network, bool) {
	return byIndex(c.networks, i)
}

// Find returns the node at any level with the given pid.
func (c *Controller) Find(pid uuid.UUID) (Switch, bool) {
	var found Switch
	c.walk(func(sw Switch) bool {
		if sw.PID() == pid {
			found = sw
			return false
		}
		return true
	})
	return found, found != nil
}

// Resolve follows a path of profile names from the network level down, for
// example Resolve("Flashlight", "AAA Battery", "Basic Circuit", "White LED").
// Each element matches the first child with that name.
func (c *Controller) Resolve(path ...string) (Switch, bool) {
	if len(path) == 0 || len(path) > 4 {
		return nil, false
	}

	n, ok := c.NetworkByName(path[0])
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return n, true
	}
	s, ok := n.PowerSourceByName(path[1])
	if !ok {
		return nil, false
	}
	if len(path) == 2 {
		return s, true
	}
	circuit, ok := s.CircuitByName(path[2])
	if !ok {
		return nil, false
	}
	if len(path) == 3 {
		return circuit, true
	}
	consumer, ok := circuit.ConsumerByName(path[3])
	if !ok {
		return nil, false
	}
	return consumer, true
}

// walk visits every node depth first in evaluation order until fn returns false.
func (c *Controller) walk(fn func(Switch) bool) {
	for _, n := range c.networks {
		if !fn(n) {
			return
		}
		for _, s := range n.sources {
			if !fn(s) {
				return
			}
			for _, circuit := range s.circuits {
				if !fn(circuit) {
					return
				}
				for _, consumer := range circuit.consumers {
					if !fn(consumer) {
						return
					}
				}
			}
		}
	}
}
