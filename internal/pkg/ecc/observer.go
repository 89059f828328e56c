package ecc

import "github.com/google/uuid"

// Trip records a circuit switched off by an overload.
type Trip struct {
	Network       uuid.UUID `json:"Network"`
	Source        uuid.UUID `json:"Source"`
	Circuit       uuid.UUID `json:"Circuit"`
	CircuitName   string    `json:"CircuitName"`
	LoadWatts     float64   `json:"LoadWatts"`
	CapacityWatts float64   `json:"CapacityWatts"`
}

func newTrip(n *Network, s *PowerSource, c *Circuit) Trip {
	return Trip{
		Network:       n.pid,
		Source:        s.pid,
		Circuit:       c.pid,
		CircuitName:   c.Name(),
		LoadWatts:     c.loadWatts,
		CapacityWatts: c.capacityWatts,
	}
}

// OverloadObserver is notified synchronously of every trip.
type OverloadObserver interface {
	CircuitOverloaded(Trip)
}

// ObserverFunc adapts a function to an OverloadObserver.
type ObserverFunc func(Trip)

// CircuitOverloaded calls f(t).
func (f ObserverFunc) CircuitOverloaded(t Trip) {
	f(t)
}

type observer struct {
	pid uuid.UUID
	obs OverloadObserver
}

// Subscribe registers an overload observer under pid, replacing any observer
// already registered with that pid. Observers are called in registration order.
func (c *Controller) Subscribe(pid uuid.UUID, obs OverloadObserver) {
	if obs == nil {
		return
	}
	for i := range c.observers {
		if c.observers[i].pid == pid {
			c.observers[i].obs = obs
			return
		}
	}
	c.observers = append(c.observers, observer{pid, obs})
}

// Unsubscribe removes the observer registered under pid.
func (c *Controller) Unsubscribe(pid uuid.UUID) {
	for i := range c.observers {
		if c.observers[i].pid == pid {
			c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
			return
		}
	}
}

func (c *Controller) notify(trips []Trip) {
	if len(c.observers) == 0 {
		return
	}
	// An observer may unsubscribe itself while being notified.
	observers := append([]observer(nil), c.observers...)
	for _, t := range trips {
		for _, o := range observers {
			o.obs.CircuitOverloaded(t)
		}
	}
}
