/*
profile.go Immutable descriptions of the electrical modules. A profile is shared by
every runtime node built from it and is never written by the controller.
*/

package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile is wrapped by every validation failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Base holds the identity fields common to all profiles.
type Base struct {
	Name        string                 `json:"Name"`
	Description string                 `json:"Description"`
	Custom      map[string]interface{} `json:"Custom,omitempty"`
}

// Network describes a top level switchable group of power sources.
type Network struct {
	Base
}

// Source describes a finite energy supply.
type Source struct {
	Base
	Volts    float64 `json:"Volts"`
	AmpHours float64 `json:"AmpHours"`
}

// Circuit describes a current path under one source.
type Circuit struct {
	Base
	// Loss stands in for resistance, conductor length and the like. It only
	// increases the apparent draw.
	Loss           float64 `json:"Loss"`
	AmperageRating float64 `json:"AmperageRating"`
}

// Consumer describes a device drawing rated wattage when switched on.
type Consumer struct {
	Base
	Watts                  float64 `json:"Watts"`
	ParasiticDrainWattsMin float64 `json:"ParasiticDrainWattsMin"`
	ParasiticDrainWattsMax float64 `json:"ParasiticDrainWattsMax"`
}

// Validate checks the network profile.
func (p Network) Validate() error {
	return nil
}

// Validate checks the source profile. Volts must be strictly positive since the
// evaluator divides by it.
func (p Source) Validate() error {
	if err := finite(p.Name, "Volts", p.Volts); err != nil {
		return err
	}
	if err := finite(p.Name, "AmpHours", p.AmpHours); err != nil {
		return err
	}
	if p.Volts <= 0 {
		return invalid(p.Name, "Volts must be > 0, got %v", p.Volts)
	}
	if p.AmpHours < 0 {
		return invalid(p.Name, "AmpHours must be >= 0, got %v", p.AmpHours)
	}
	return nil
}

// Validate checks the circuit profile.
func (p Circuit) Validate() error {
	if err := finite(p.Name, "Loss", p.Loss); err != nil {
		return err
	}
	if err := finite(p.Name, "AmperageRating", p.AmperageRating); err != nil {
		return err
	}
	if p.Loss < 0 || p.Loss > 1 {
		return invalid(p.Name, "Loss must be within [0, 1], got %v", p.Loss)
	}
	if p.AmperageRating < 0 {
		return invalid(p.Name, "AmperageRating must be >= 0, got %v", p.AmperageRating)
	}
	return nil
}

// Validate checks the consumer profile.
func (p Consumer) Validate() error {
	for field, v := range map[string]float64{
		"Watts":                  p.Watts,
		"ParasiticDrainWattsMin": p.ParasiticDrainWattsMin,
		"ParasiticDrainWattsMax": p.ParasiticDrainWattsMax,
	} {
		if err := finite(p.Name, field, v); err != nil {
			return err
		}
	}
	if p.Watts < 0 {
		return invalid(p.Name, "Watts must be >= 0, got %v", p.Watts)
	}
	if p.ParasiticDrainWattsMin < 0 {
		return invalid(p.Name, "ParasiticDrainWattsMin must be >= 0, got %v", p.ParasiticDrainWattsMin)
	}
	if p.ParasiticDrainWattsMin > p.ParasiticDrainWattsMax {
		return invalid(p.Name, "parasitic drain range [%v, %v] is inverted",
			p.ParasiticDrainWattsMin, p.ParasiticDrainWattsMax)
	}
	return nil
}

// NewNetwork returns a validated Network profile from a json config.
func NewNetwork(jsonConfig []byte) (*Network, error) {
	p := &Network{}
	if err := json.Unmarshal(jsonConfig, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

// NewSource returns a validated Source profile from a json config.
func NewSource(jsonConfig []byte) (*Source, error) {
	p := &Source{}
	if err := json.Unmarshal(jsonConfig, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

// NewCircuit returns a validated Circuit profile from a json config.
func NewCircuit(jsonConfig []byte) (*Circuit, error) {
	p := &Circuit{}
	if err := json.Unmarshal(jsonConfig, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

// NewConsumer returns a validated Consumer profile from a json config.
func NewConsumer(jsonConfig []byte) (*Consumer, error) {
	p := &Consumer{}
	if err := json.Unmarshal(jsonConfig, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

func finite(name, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, "%v must be finite, got %v", field, v)
	}
	return nil
}

func invalid(name, format string, args ...interface{}) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidProfile, name, fmt.Sprintf(format, args...))
}
