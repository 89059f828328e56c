/*
metrics.go Prometheus gauges and counters fed from controller status snapshots and trips.
*/

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
)

// Collector bundles the controller metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	CircuitLoad     *prometheus.GaugeVec
	CircuitCapacity *prometheus.GaugeVec
	SourceUsed      *prometheus.GaugeVec
	SourceRemaining *prometheus.GaugeVec
	Operating       *prometheus.GaugeVec
	Trips           *prometheus.CounterVec
	Evaluations     prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	load, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecc_circuit_load_watts",
		Help: "Circuit load in watts at the last evaluation.",
	}, []string{"pid", "circuit"}), "ecc_circuit_load_watts")
	if err != nil {
		return nil, err
	}
	capacity, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecc_circuit_capacity_watts",
		Help: "Circuit capacity in watts at the last evaluation.",
	}, []string{"pid", "circuit"}), "ecc_circuit_capacity_watts")
	if err != nil {
		return nil, err
	}
	used, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecc_source_amp_hours_used",
		Help: "Amp-hours drawn from a power source.",
	}, []string{"pid", "source"}), "ecc_source_amp_hours_used")
	if err != nil {
		return nil, err
	}
	remaining, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecc_source_amp_hours_remaining",
		Help: "Amp-hours left in a power source.",
	}, []string{"pid", "source"}), "ecc_source_amp_hours_remaining")
	if err != nil {
		return nil, err
	}
	operating, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecc_node_operating",
		Help: "1 when the node is switched on and powered.",
	}, []string{"pid", "name", "level"}), "ecc_node_operating")
	if err != nil {
		return nil, err
	}
	trips, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecc_circuit_trips_total",
		Help: "Circuits switched off by an overload.",
	}, []string{"pid", "circuit"}), "ecc_circuit_trips_total")
	if err != nil {
		return nil, err
	}
	evaluations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecc_evaluations_total",
		Help: "Cascading evaluation passes run.",
	}), "ecc_evaluations_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		CircuitLoad:     load,
		CircuitCapacity: capacity,
		SourceUsed:      used,
		SourceRemaining: remaining,
		Operating:       operating,
		Trips:           trips,
		Evaluations:     evaluations,
	}, nil
}

// Handler exposes a /metrics handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObservePass counts an evaluation pass.
func (c *Collector) ObservePass() {
	if c == nil {
		return
	}
	c.Evaluations.Inc()
}

// ObserveTrip counts a circuit trip.
func (c *Collector) ObserveTrip(t ecc.Trip) {
	if c == nil {
		return
	}
	c.Trips.WithLabelValues(t.Circuit.String(), t.CircuitName).Inc()
}

// ObserveStatus sets the gauges from a snapshot.
func (c *Collector) ObserveStatus(status ecc.Status) {
	if c == nil {
		return
	}
	for _, n := range status.Networks {
		c.Operating.WithLabelValues(n.PID.String(), n.Name, "network").Set(boolToFloat(n.Operating))
		for _, s := range n.Sources {
			pid := s.PID.String()
			c.SourceUsed.WithLabelValues(pid, s.Name).Set(s.AmpHoursUsed)
			c.SourceRemaining.WithLabelValues(pid, s.Name).Set(s.AmpHoursRemaining)
			c.Operating.WithLabelValues(pid, s.Name, "source").Set(boolToFloat(s.Operating))
			for _, circuit := range s.Circuits {
				pid := circuit.PID.String()
				c.CircuitLoad.WithLabelValues(pid, circuit.Name).Set(circuit.LoadWatts)
				c.CircuitCapacity.WithLabelValues(pid, circuit.Name).Set(circuit.CapacityWatts)
				c.Operating.WithLabelValues(pid, circuit.Name, "circuit").Set(boolToFloat(circuit.Operating))
				for _, consumer := range circuit.Consumers {
					c.Operating.WithLabelValues(consumer.PID.String(), consumer.Name, "consumer").Set(boolToFloat(consumer.Operating))
				}
			}
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
