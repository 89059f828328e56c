package ecc

import "github.com/google/uuid"

// Status is a point in time copy of the whole tree.
type Status struct {
	Networks []NetworkStatus `json:"Networks"`
}

// NetworkStatus is the reported state of a network.
type NetworkStatus struct {
	PID        uuid.UUID      `json:"PID"`
	Name       string         `json:"Name"`
	SwitchedOn bool           `json:"SwitchedOn"`
	Operating  bool           `json:"Operating"`
	Sources    []SourceStatus `json:"Sources"`
}

// SourceStatus is the reported state of a power source.
type SourceStatus struct {
	PID               uuid.UUID       `json:"PID"`
	Name              string          `json:"Name"`
	SwitchedOn        bool            `json:"SwitchedOn"`
	HasPower          bool            `json:"HasPower"`
	Operating         bool            `json:"Operating"`
	Volts             float64         `json:"Volts"`
	AmpHourCapacity   float64         `json:"AmpHourCapacity"`
	AmpHoursUsed      float64         `json:"AmpHoursUsed"`
	AmpHoursRemaining float64         `json:"AmpHoursRemaining"`
	Circuits          []CircuitStatus `json:"Circuits"`
}

// CircuitStatus is the reported state of a circuit.
type CircuitStatus struct {
	PID           uuid.UUID        `json:"PID"`
	Name          string           `json:"Name"`
	SwitchedOn    bool             `json:"SwitchedOn"`
	HasPower      bool             `json:"HasPower"`
	Operating     bool             `json:"Operating"`
	LoadWatts     float64          `json:"LoadWatts"`
	CapacityWatts float64          `json:"CapacityWatts"`
	LoadPercent   float64          `json:"LoadPercent"`
	Consumers     []ConsumerStatus `json:"Consumers"`
}

// ConsumerStatus is the reported state of a consumer.
type ConsumerStatus struct {
	PID        uuid.UUID `json:"PID"`
	Name       string    `json:"Name"`
	SwitchedOn bool      `json:"SwitchedOn"`
	HasPower   bool      `json:"HasPower"`
	Operating  bool      `json:"Operating"`
	Watts      float64   `json:"Watts"`
}

// Status snapshots the tree.
func (c *Controller) Status() Status {
	status := Status{Networks: make([]NetworkStatus, 0, len(c.networks))}
	for _, n := range c.networks {
		status.Networks = append(status.Networks, n.status())
	}
	return status
}

func (n *Network) status() NetworkStatus {
	ns := NetworkStatus{
		PID:        n.pid,
		Name:       n.Name(),
		SwitchedOn: n.switchedOn,
		Operating:  n.Operating(),
		Sources:    make([]SourceStatus, 0, len(n.sources)),
	}
	for _, s := range n.sources {
		ns.Sources = append(ns.Sources, s.status())
	}
	return ns
}

func (s *PowerSource) status() SourceStatus {
	ss := SourceStatus{
		PID:               s.pid,
		Name:              s.Name(),
		SwitchedOn:        s.switchedOn,
		HasPower:          s.hasPower,
		Operating:         s.Operating(),
		Volts:             s.profile.Volts,
		AmpHourCapacity:   s.profile.AmpHours,
		AmpHoursUsed:      s.ampHoursUsed,
		AmpHoursRemaining: s.AmpHoursRemaining(),
		Circuits:          make([]CircuitStatus, 0, len(s.circuits)),
	}
	for _, c := range s.circuits {
		ss.Circuits = append(ss.Circuits, c.status())
	}
	return ss
}

func (c *Circuit) status() CircuitStatus {
	cs := CircuitStatus{
		PID:           c.pid,
		Name:          c.Name(),
		SwitchedOn:    c.switchedOn,
		HasPower:      c.hasPower,
		Operating:     c.Operating(),
		LoadWatts:     c.loadWatts,
		CapacityWatts: c.capacityWatts,
		LoadPercent:   c.LoadPercent(),
		Consumers:     make([]ConsumerStatus, 0, len(c.consumers)),
	}
	for _, consumer := range c.consumers {
		cs.Consumers = append(cs.Consumers, ConsumerStatus{
			PID:        consumer.pid,
			Name:       consumer.Name(),
			SwitchedOn: consumer.switchedOn,
			HasPower:   consumer.hasPower,
			Operating:  consumer.Operating(),
			Watts:      consumer.profile.Watts,
		})
	}
	return cs
}
