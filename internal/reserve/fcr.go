// Package reserve holds the ancillary-service decision components: the FCR
// reserve optimizer and the mFRR load balancer.
package reserve

import (
	"errors"
	"fmt"
	"math"

	"bess_simulator/internal/solve"
)

var (
	ErrInvalidReserve   = errors.New("reserve: base min reserve must be >= 0")
	ErrInvalidFactor    = errors.New("reserve: max increase factor must be >= 1")
	ErrForecastMismatch = errors.New("reserve: forecast lengths differ")
	ErrInvalidReduction = errors.New("reserve: max load reduction must be >= 0")
	ErrInvalidStorage   = errors.New("reserve: storage level must be within [0, capacity]")
)

const (
	defaultNominalHz   = 50.0
	defaultThresholdHz = 0.1
	defaultMaxFactor   = 1.5
)

// FCRConfig configures the frequency containment reserve optimizer.
type FCRConfig struct {
	BaseMinReserveKWh    float64 `json:"base_min_reserve_kwh" yaml:"base_min_reserve_kwh"`
	MaxIncreaseFactor    float64 `json:"max_reserve_increase_factor" yaml:"max_reserve_increase_factor"`
	NominalFrequencyHz   float64 `json:"nominal_frequency_hz" yaml:"nominal_frequency_hz"`
	FrequencyThresholdHz float64 `json:"frequency_threshold_hz" yaml:"frequency_threshold_hz"`
}

// Optimizer maintains a dynamically adjusted minimum reserve and decides how
// much stored energy to release toward grid demand. The reserve is recomputed
// on every Regulate call, first from the grid frequency deviation and then
// from a forecast-driven scalar optimization.
type Optimizer struct {
	base        float64
	maxFactor   float64
	nominalHz   float64
	thresholdHz float64

	currentMinReserve float64
}

// NewOptimizer validates the configuration and starts with the reserve at its
// configured base.
func NewOptimizer(cfg FCRConfig) (*Optimizer, error) {
	if cfg.BaseMinReserveKWh < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidReserve, cfg.BaseMinReserveKWh)
	}
	if cfg.MaxIncreaseFactor == 0 {
		cfg.MaxIncreaseFactor = defaultMaxFactor
	}
	if cfg.MaxIncreaseFactor < 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFactor, cfg.MaxIncreaseFactor)
	}
	if cfg.NominalFrequencyHz == 0 {
		cfg.NominalFrequencyHz = defaultNominalHz
	}
	if cfg.FrequencyThresholdHz == 0 {
		cfg.FrequencyThresholdHz = defaultThresholdHz
	}
	return &Optimizer{
		base:              cfg.BaseMinReserveKWh,
		maxFactor:         cfg.MaxIncreaseFactor,
		nominalHz:         cfg.NominalFrequencyHz,
		thresholdHz:       cfg.FrequencyThresholdHz,
		currentMinReserve: cfg.BaseMinReserveKWh,
	}, nil
}

// CurrentMinReserve returns the protected reserve from the last decision, in
// kWh. Always within [0, base × maxIncreaseFactor].
func (o *Optimizer) CurrentMinReserve() float64 {
	return o.currentMinReserve
}

// updateReserveRequirements scales the reserve with the frequency deviation:
// larger deviations demand a larger protected reserve, capped at the
// configured factor. Within the threshold the reserve resets to its base.
func (o *Optimizer) updateReserveRequirements(gridHz float64) {
	deviation := math.Abs(gridHz - o.nominalHz)
	if deviation > o.thresholdHz {
		factor := math.Min(deviation/o.thresholdHz, o.maxFactor)
		o.currentMinReserve = o.base * factor
	} else {
		o.currentMinReserve = o.base
	}
}

// optimizeReserve minimizes, over r in [0, base×maxFactor], the unmet net
// demand a withheld reserve would cause plus the shortfall of promising more
// reserve than is actually stored. The objective is convex piecewise-linear;
// on a flat optimum the smallest r wins. Solver failure silently falls back
// to the base reserve.
func (o *Optimizer) optimizeReserve(storedKWh float64, demandForecast, renewableForecast []float64) {
	objective := func(r float64) float64 {
		var total float64
		for i := range demandForecast {
			total += math.Max(demandForecast[i]-renewableForecast[i]-r, 0)
		}
		total += math.Max(r-storedKWh, 0)
		return total
	}

	r, err := solve.MinimizeScalar(objective, 0, o.base*o.maxFactor)
	if err != nil {
		o.currentMinReserve = o.base
		return
	}
	o.currentMinReserve = r
}

// Regulate decides the energy (kWh) to release to the grid for the current
// step. Never negative, never above demand, and never dips into the protected
// reserve.
func (o *Optimizer) Regulate(storedKWh, demandKWh, gridHz float64, demandForecast, renewableForecast []float64) (float64, error) {
	if len(demandForecast) != len(renewableForecast) {
		return 0, fmt.Errorf("%w: demand %d, renewable %d",
			ErrForecastMismatch, len(demandForecast), len(renewableForecast))
	}

	o.updateReserveRequirements(gridHz)
	if len(demandForecast) > 0 {
		o.optimizeReserve(storedKWh, demandForecast, renewableForecast)
	}

	if storedKWh > o.currentMinReserve && demandKWh > 0 {
		return math.Min(storedKWh-o.currentMinReserve, demandKWh), nil
	}
	return 0, nil
}
