package ecc

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/ohowland/ecc_core/internal/pkg/profile"
)

func TestSteadyLoad(t *testing.T) {
	tree := newTestTree(t, 24)

	trips := tree.ctrl.Advance(time.Hour)

	assert.Equal(t, len(trips), 0)
	assert.Equal(t, tree.circuit.LoadWatts(), 24.0)
	assert.Equal(t, tree.circuit.CapacityWatts(), 60.0)
	approx(t, tree.source.AmpHoursUsed(), 2.0)
	approx(t, tree.source.AmpHoursRemaining(), 8.0)
	approx(t, tree.circuit.LoadPercent(), 40.0)
	assert.Assert(t, tree.circuit.SwitchedOn())
	assert.Assert(t, tree.circuit.Operating())
	assert.Assert(t, tree.consumer.Operating())
}

func TestOverloadTripsCircuit(t *testing.T) {
	tree := newTestTree(t, 100)

	var observed []Trip
	tree.ctrl.Subscribe(uuid.New(), ObserverFunc(func(trip Trip) {
		observed = append(observed, trip)
	}))

	trips := tree.ctrl.Advance(time.Second)

	assert.Equal(t, len(trips), 1)
	assert.Equal(t, len(observed), 1)
	assert.Equal(t, observed[0], trips[0])
	assert.Equal(t, trips[0].Circuit, tree.circuit.PID())
	assert.Equal(t, trips[0].Source, tree.source.PID())
	assert.Equal(t, trips[0].Network, tree.network.PID())
	assert.Equal(t, trips[0].CircuitName, "Main")
	assert.Equal(t, trips[0].LoadWatts, 100.0)
	assert.Equal(t, trips[0].CapacityWatts, 60.0)

	// the tripping pass still reports the overload
	assert.Equal(t, tree.circuit.LoadWatts(), 100.0)
	assert.Assert(t, !tree.circuit.SwitchedOn())
	assert.Assert(t, !tree.circuit.Operating())

	trips = tree.ctrl.Advance(time.Second)
	assert.Equal(t, len(trips), 0)
	assert.Equal(t, len(observed), 1)
	assert.Equal(t, tree.circuit.LoadWatts(), 0.0)
	assert.Assert(t, !tree.circuit.HasPower())
	assert.Assert(t, !tree.consumer.HasPower())
}

func TestTrippingPassStillDrawsEnergy(t *testing.T) {
	tree := newTestTree(t, 120)

	tree.ctrl.Advance(time.Hour)

	approx(t, tree.source.AmpHoursUsed(), 10.0)
}

func TestSourceExhaustion(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Cell"}, Volts: 12, AmpHours: 1},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 12},
	)

	tree.ctrl.Advance(time.Hour)

	assert.Equal(t, tree.source.AmpHoursUsed(), 1.0)
	assert.Equal(t, tree.source.AmpHoursRemaining(), 0.0)
	// exhaustion is not retroactive within the pass
	assert.Assert(t, tree.source.HasPower())
	assert.Equal(t, tree.circuit.LoadWatts(), 12.0)

	tree.ctrl.Advance(time.Hour)

	assert.Assert(t, !tree.source.HasPower())
	assert.Assert(t, !tree.circuit.HasPower())
	assert.Equal(t, tree.circuit.LoadWatts(), 0.0)
	assert.Equal(t, tree.source.AmpHoursUsed(), 1.0)
}

func TestOverdrawIsClamped(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Cell"}, Volts: 12, AmpHours: 1},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 20},
		&profile.Consumer{Base: profile.Base{Name: "Heater"}, Watts: 120},
	)

	tree.ctrl.Advance(24 * time.Hour)

	assert.Equal(t, tree.source.AmpHoursUsed(), 1.0)
}

func TestDepletionIsLinear(t *testing.T) {
	tree := newTestTree(t, 6)

	for i := 0; i < 30; i++ {
		tree.ctrl.Advance(time.Minute)
	}

	// (6W / 12V) / 3600 * 1800s
	approx(t, tree.source.AmpHoursUsed(), 0.25)
}

func TestAllSwitchesOff(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 24, ParasiticDrainWattsMin: 1, ParasiticDrainWattsMax: 2},
	)
	tree.network.SetSwitchedOn(false)
	tree.source.SetSwitchedOn(false)
	tree.circuit.SetSwitchedOn(false)
	tree.consumer.SetSwitchedOn(false)

	for i := 0; i < 10; i++ {
		tree.ctrl.Advance(1000 * time.Hour)
	}

	assert.Equal(t, tree.circuit.LoadWatts(), 0.0)
	assert.Equal(t, tree.source.AmpHoursUsed(), 0.0)
	assert.Equal(t, tree.circuit.CapacityWatts(), 60.0)
}

func TestParasiticDrainWhileConsumerOff(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5},
		&profile.Consumer{Base: profile.Base{Name: "Radio"}, Watts: 10, ParasiticDrainWattsMin: 1, ParasiticDrainWattsMax: 3},
	)
	tree.ctrl.sampler = fixedSampler(0.5)

	tree.consumer.SetSwitchedOn(false)
	tree.ctrl.Advance(time.Second)
	assert.Equal(t, tree.circuit.LoadWatts(), 2.0)
	assert.Assert(t, !tree.consumer.HasPower())

	tree.consumer.SetSwitchedOn(true)
	tree.ctrl.Advance(time.Second)
	assert.Equal(t, tree.circuit.LoadWatts(), 12.0)
	assert.Assert(t, tree.consumer.Operating())

	tree.circuit.SetSwitchedOn(false)
	tree.ctrl.Advance(time.Second)
	assert.Equal(t, tree.circuit.LoadWatts(), 0.0)
}

func TestParasiticDrainIsResampled(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 5},
		&profile.Consumer{Base: profile.Base{Name: "Radio"}, ParasiticDrainWattsMin: 1, ParasiticDrainWattsMax: 3},
	)
	tree.ctrl.sampler = rand.New(rand.NewSource(7))

	seen := map[float64]bool{}
	for i := 0; i < 20; i++ {
		tree.ctrl.Advance(time.Second)
		load := tree.circuit.LoadWatts()
		assert.Assert(t, load >= 1 && load <= 3, "load %v outside parasitic range", load)
		seen[load] = true
	}
	assert.Assert(t, len(seen) > 1)
}

func TestLossIncreasesDraw(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Long Run"}, AmperageRating: 5, Loss: 0.5},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 12},
	)

	tree.ctrl.Advance(time.Hour)

	// loss is not part of the reported load
	assert.Equal(t, tree.circuit.LoadWatts(), 12.0)
	approx(t, tree.source.AmpHoursUsed(), 1.5)
}

func TestTimeMultiplierScalesEnergy(t *testing.T) {
	tree := newTestTree(t, 24)
	assert.NilError(t, tree.ctrl.SetTimeMultiplier(0.25))

	tree.ctrl.Advance(time.Hour)

	approx(t, tree.source.AmpHoursUsed(), 0.5)
}

func TestZeroCapacityTripsOnAnyLoad(t *testing.T) {
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Unrated"}, AmperageRating: 0},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 0.001},
	)

	trips := tree.ctrl.Advance(time.Second)
	assert.Equal(t, len(trips), 1)
	assert.Equal(t, tree.circuit.LoadPercent(), 0.0)

	idle := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 10},
		&profile.Circuit{Base: profile.Base{Name: "Unrated"}, AmperageRating: 0},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 0},
	)
	assert.Equal(t, len(idle.ctrl.Advance(time.Second)), 0)
	assert.Assert(t, idle.circuit.SwitchedOn())
}

func TestSiblingCircuitsShareSource(t *testing.T) {
	tree := newTestTree(t, 12)

	lamp, err := NewConsumer(&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 12})
	assert.NilError(t, err)
	second, err := NewCircuit(&profile.Circuit{Base: profile.Base{Name: "Aux"}, AmperageRating: 5}, lamp)
	assert.NilError(t, err)
	tree.source.AddCircuit(second)

	tree.ctrl.Advance(time.Hour)

	approx(t, tree.source.AmpHoursUsed(), 2.0)
	assert.Equal(t, second.CapacityWatts(), 60.0)
}

func TestOnlyOverloadedSiblingTrips(t *testing.T) {
	tree := newTestTree(t, 100)

	lamp, err := NewConsumer(&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 12})
	assert.NilError(t, err)
	second, err := NewCircuit(&profile.Circuit{Base: profile.Base{Name: "Aux"}, AmperageRating: 5}, lamp)
	assert.NilError(t, err)
	tree.source.AddCircuit(second)

	trips := tree.ctrl.Advance(time.Second)

	assert.Equal(t, len(trips), 1)
	assert.Equal(t, trips[0].Circuit, tree.circuit.PID())
	assert.Assert(t, second.SwitchedOn())
	assert.Equal(t, second.LoadWatts(), 12.0)
}

func TestNetworkToggleRoundTrip(t *testing.T) {
	tree := newTestTree(t, 24)

	tree.ctrl.Advance(0)
	load, capacity := tree.circuit.LoadWatts(), tree.circuit.CapacityWatts()

	tree.network.Toggle()
	tree.ctrl.Advance(0)
	assert.Equal(t, tree.circuit.LoadWatts(), 0.0)
	assert.Assert(t, !tree.source.HasPower())

	tree.network.Toggle()
	tree.ctrl.Advance(0)
	assert.Equal(t, tree.circuit.LoadWatts(), load)
	assert.Equal(t, tree.circuit.CapacityWatts(), capacity)
	assert.Equal(t, tree.source.AmpHoursUsed(), 0.0)
}

// TestInvariants drives random switch changes and checks the power-flow
// invariants after every pass.
func TestInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := newTestTreeWith(t,
		&profile.Source{Base: profile.Base{Name: "Battery"}, Volts: 12, AmpHours: 0.5},
		&profile.Circuit{Base: profile.Base{Name: "Main"}, AmperageRating: 3, Loss: 0.1},
		&profile.Consumer{Base: profile.Base{Name: "Lamp"}, Watts: 30, ParasiticDrainWattsMin: 0, ParasiticDrainWattsMax: 10},
	)
	tree.ctrl.sampler = rng

	switches := []Switch{tree.network, tree.source, tree.circuit, tree.consumer}
	for i := 0; i < 500; i++ {
		switches[rng.Intn(len(switches))].Toggle()
		tree.ctrl.Advance(time.Duration(rng.Intn(120)) * time.Second)

		used := tree.source.AmpHoursUsed()
		assert.Assert(t, used >= 0 && used <= tree.source.AmpHourCapacity(), "pass %d: used %v", i, used)
		assert.Equal(t, tree.circuit.CapacityWatts(), 3*12.0)

		if tree.consumer.HasPower() {
			assert.Assert(t, tree.circuit.HasPower(), "pass %d", i)
		}
		if tree.circuit.HasPower() {
			assert.Assert(t, tree.source.HasPower(), "pass %d", i)
		}
		if tree.source.HasPower() {
			assert.Assert(t, tree.network.SwitchedOn(), "pass %d", i)
		}
	}
}
