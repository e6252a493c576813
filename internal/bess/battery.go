package bess

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidCapacity   = errors.New("bess: capacity must be > 0")
	ErrInvalidEfficiency = errors.New("bess: efficiency must be in (0, 1]")
)

// Config holds the user-configurable parameters for the analytic battery.
type Config struct {
	CapacityKWh float64 `json:"capacity_kwh" yaml:"capacity_kwh"`
	Efficiency  float64 `json:"efficiency" yaml:"efficiency"`
}

func (c Config) validate() error {
	if c.CapacityKWh <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidCapacity, c.CapacityKWh)
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidEfficiency, c.Efficiency)
	}
	return nil
}

// Battery is the simple analytic BESS model: a fixed capacity with a one-way
// conversion efficiency applied on both store and release. Boundary
// conditions (full, empty) clamp silently.
type Battery struct {
	capacityKWh float64
	efficiency  float64
	storedKWh   float64
}

// NewBattery creates an empty battery. Configuration is validated here;
// operations never fail afterwards.
func NewBattery(cfg Config) (*Battery, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Battery{
		capacityKWh: cfg.CapacityKWh,
		efficiency:  cfg.Efficiency,
	}, nil
}

// Store absorbs energy (kWh), applying the conversion efficiency. Returns the
// energy actually added and the amount curtailed because the battery was full.
func (b *Battery) Store(energyKWh float64) (stored, curtailed float64) {
	if energyKWh <= 0 {
		return 0, 0
	}
	effective := energyKWh * b.efficiency
	headroom := b.capacityKWh - b.storedKWh
	stored = math.Min(headroom, effective)
	b.storedKWh += stored
	return stored, effective - stored
}

// Release delivers up to the requested energy (kWh) to the grid. The internal
// draw is requested/efficiency capped at the stored energy; the delivered
// amount is draw×efficiency, so the caller never receives more than requested.
func (b *Battery) Release(requestedKWh float64) float64 {
	if requestedKWh <= 0 {
		return 0
	}
	draw := math.Min(b.storedKWh, requestedKWh/b.efficiency)
	b.storedKWh -= draw
	return draw * b.efficiency
}

// StateOfCharge returns the stored energy as a percentage of capacity.
// Capacity is > 0 by construction, so this never divides by zero.
func (b *Battery) StateOfCharge() float64 {
	return b.storedKWh / b.capacityKWh * 100
}

// StoredEnergy returns the energy currently held, in kWh.
func (b *Battery) StoredEnergy() float64 {
	return b.storedKWh
}

// CurrentCapacity returns the battery capacity in kWh. The analytic model
// does not fade.
func (b *Battery) CurrentCapacity() float64 {
	return b.capacityKWh
}

// Charge implements Storage; the rate is ignored by the analytic model.
func (b *Battery) Charge(energyKWh, _ float64) float64 {
	stored, _ := b.Store(energyKWh)
	return stored
}

// Discharge implements Storage; the rate is ignored by the analytic model.
func (b *Battery) Discharge(energyKWh, _ float64) float64 {
	return b.Release(energyKWh)
}
