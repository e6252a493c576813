package bess

import (
	"fmt"
	"math"
)

const (
	defaultTempLossCoeff = 0.01   // efficiency loss per °C away from 25°C
	defaultRateLossCoeff = 0.05   // efficiency loss per unit of C-rate above 1
	defaultFadeCoeff     = 0.0001 // capacity fade per unit cycle depth
	defaultFadeTempCoeff = 0.01   // thermal acceleration of fade per °C
	minEfficiency        = 0.7
	refTempC             = 25.0

	// Fade never drives the capacity below this fraction of nominal; past it
	// the battery keeps operating at the floor and reports exhaustion.
	capacityFloorFraction = 0.05
)

// DegradingConfig configures the advanced battery variant. Zero-valued
// coefficients fall back to the reference constants.
type DegradingConfig struct {
	CapacityKWh   float64 `json:"capacity_kwh" yaml:"capacity_kwh"`
	AmbientTempC  float64 `json:"ambient_temp_c" yaml:"ambient_temp_c"`
	TempLossCoeff float64 `json:"temp_loss_coeff" yaml:"temp_loss_coeff"`
	RateLossCoeff float64 `json:"rate_loss_coeff" yaml:"rate_loss_coeff"`
	FadeCoeff     float64 `json:"fade_coeff" yaml:"fade_coeff"`
	FadeTempCoeff float64 `json:"fade_temp_coeff" yaml:"fade_temp_coeff"`
}

// DegradingBattery models capacity fade and rate/temperature-dependent
// efficiency on top of SOC bookkeeping. SOC is a fraction in [0, 1] of the
// current (faded) capacity.
type DegradingBattery struct {
	nominalKWh float64
	currentKWh float64
	soc        float64
	tempC      float64

	tempLoss float64
	rateLoss float64
	fade     float64
	fadeTemp float64

	cycleCount     int
	lastCycleDepth float64
	exhausted      bool
}

// NewDegradingBattery creates an empty degrading battery at the configured
// ambient temperature.
func NewDegradingBattery(cfg DegradingConfig) (*DegradingBattery, error) {
	if cfg.CapacityKWh <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCapacity, cfg.CapacityKWh)
	}
	d := &DegradingBattery{
		nominalKWh: cfg.CapacityKWh,
		currentKWh: cfg.CapacityKWh,
		tempC:      cfg.AmbientTempC,
		tempLoss:   cfg.TempLossCoeff,
		rateLoss:   cfg.RateLossCoeff,
		fade:       cfg.FadeCoeff,
		fadeTemp:   cfg.FadeTempCoeff,
	}
	if d.tempLoss == 0 {
		d.tempLoss = defaultTempLossCoeff
	}
	if d.rateLoss == 0 {
		d.rateLoss = defaultRateLossCoeff
	}
	if d.fade == 0 {
		d.fade = defaultFadeCoeff
	}
	if d.fadeTemp == 0 {
		d.fadeTemp = defaultFadeTempCoeff
	}
	return d, nil
}

// EfficiencyAt computes the one-way conversion efficiency for a C-rate at the
// current temperature, clipped to [0.7, 1].
func (d *DegradingBattery) EfficiencyAt(rate float64) float64 {
	eff := 1 - d.tempLoss*math.Abs(d.tempC-refTempC) - d.rateLoss*(rate-1)
	return math.Min(1, math.Max(minEfficiency, eff))
}

// Charge stores energy (kWh) at a C-rate; returns the energy absorbed.
func (d *DegradingBattery) Charge(energyKWh, rate float64) float64 {
	if energyKWh <= 0 {
		return 0
	}
	effective := energyKWh * d.EfficiencyAt(rate)
	headroomKWh := (1 - d.soc) * d.currentKWh
	stored := math.Min(headroomKWh, effective)
	d.soc = clampFraction(d.soc + stored/d.currentKWh)
	return stored
}

// Discharge draws energy (kWh) at a C-rate; returns the energy delivered.
func (d *DegradingBattery) Discharge(energyKWh, rate float64) float64 {
	if energyKWh <= 0 {
		return 0
	}
	eff := d.EfficiencyAt(rate)
	draw := math.Min(d.soc*d.currentKWh, energyKWh/eff)
	d.soc = clampFraction(d.soc - draw/d.currentKWh)
	return draw * eff
}

// StateOfCharge returns the SOC as a percentage [0, 100].
func (d *DegradingBattery) StateOfCharge() float64 {
	return d.soc * 100
}

// Cycle records one charge/discharge cycle of the given depth (fraction of
// capacity) and applies capacity fade, accelerated away from 25°C. Returns
// true once the capacity has faded to its floor; the battery stays usable at
// the floor, the signal is advisory.
func (d *DegradingBattery) Cycle(depth float64) bool {
	if depth < 0 {
		depth = 0
	}
	d.cycleCount++
	d.lastCycleDepth = depth

	fadeFactor := d.fade * depth * (1 + d.fadeTemp*math.Abs(d.tempC-refTempC))
	d.currentKWh *= 1 - fadeFactor

	floor := d.nominalKWh * capacityFloorFraction
	if d.currentKWh <= floor {
		d.currentKWh = floor
		d.exhausted = true
	}
	return d.exhausted
}

// SetTemperature updates the operating temperature (°C) used for efficiency
// and fade calculations.
func (d *DegradingBattery) SetTemperature(tempC float64) {
	d.tempC = tempC
}

// CurrentCapacity returns the effective capacity after fade, in kWh.
func (d *DegradingBattery) CurrentCapacity() float64 {
	return d.currentKWh
}

// NominalCapacity returns the as-new capacity in kWh.
func (d *DegradingBattery) NominalCapacity() float64 {
	return d.nominalKWh
}

// CycleCount returns the number of recorded cycles.
func (d *DegradingBattery) CycleCount() int {
	return d.cycleCount
}

// LastCycleDepth returns the depth recorded by the most recent Cycle call.
func (d *DegradingBattery) LastCycleDepth() float64 {
	return d.lastCycleDepth
}

// Exhausted reports whether capacity has faded to the floor.
func (d *DegradingBattery) Exhausted() bool {
	return d.exhausted
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
