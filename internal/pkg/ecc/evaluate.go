package ecc

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const secondsPerHour = 60 * 60

// Evaluate runs one cascading pass over every network in order, drawing energy
// for the elapsed time. Overloaded circuits are switched off and returned as
// trips; observers are not called.
func (c *Controller) Evaluate(elapsed time.Duration) []Trip {
	c.passes++
	var trips []Trip
	for _, n := range c.networks {
		for _, s := range n.sources {
			trips = c.evaluateSource(n, s, elapsed.Seconds(), trips)
		}
	}
	return trips
}

func (c *Controller) evaluateSource(n *Network, s *PowerSource, seconds float64, trips []Trip) []Trip {
	// Power availability is decided before any draw, so a source exhausted by
	// this pass still supplies it.
	s.hasPower = s.switchedOn && s.AmpHoursRemaining() > 0 && n.switchedOn

	deltas := make([]float64, 0, len(s.circuits))
	for _, circuit := range s.circuits {
		circuit.hasPower = circuit.switchedOn && s.hasPower
		circuit.capacityWatts = circuit.profile.AmperageRating * s.profile.Volts
		circuit.loadWatts = c.load(circuit)

		deltas = append(deltas, c.ampHours(circuit, s, seconds))

		if circuit.loadWatts > circuit.capacityWatts {
			circuit.switchedOn = false
			trip := newTrip(n, s, circuit)
			c.log.WithFields(logrus.Fields{
				"circuit":  circuit.Name(),
				"pid":      circuit.PID(),
				"load":     circuit.loadWatts,
				"capacity": circuit.capacityWatts,
			}).Warn("circuit overloaded, switching off")
			trips = append(trips, trip)
		}
	}

	wasPowered := s.AmpHoursRemaining() > 0
	s.SetAmpHoursUsed(s.ampHoursUsed + sum(deltas))
	if wasPowered && s.AmpHoursRemaining() <= 0 {
		c.log.WithFields(logrus.Fields{
			"source": s.Name(),
			"pid":    s.PID(),
		}).Info("power source exhausted")
	}
	return trips
}

// load sets each consumer's power state and returns the circuit load in watts.
// Parasitic drain applies to every consumer on a powered circuit, including
// those switched off.
func (c *Controller) load(circuit *Circuit) float64 {
	var watts float64
	for _, consumer := range circuit.consumers {
		consumer.hasPower = consumer.switchedOn && circuit.hasPower
		if !circuit.hasPower {
			continue
		}
		watts += consumer.parasiticDrain(c.sampler)
		if consumer.switchedOn {
			watts += consumer.profile.Watts
		}
	}
	return watts
}

// ampHours converts a circuit's load over the elapsed time into charge drawn.
func (c *Controller) ampHours(circuit *Circuit, s *PowerSource, seconds float64) float64 {
	ampsPerHour := circuit.loadWatts / s.profile.Volts
	ampsPerHour += ampsPerHour * circuit.profile.Loss
	hours := seconds * c.timeMultiplier / secondsPerHour
	return ampsPerHour * hours
}

// sum folds the deltas with compensated summation so the total does not depend
// on how many circuits share the source.
func sum(deltas []float64) float64 {
	var total, comp float64
	for _, d := range deltas {
		y := d - comp
		t := total + y
		comp = (t - total) - y
		total = t
	}
	if math.IsNaN(total) {
		return 0
	}
	return total
}
