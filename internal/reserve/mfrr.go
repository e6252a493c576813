package reserve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"bess_simulator/internal/solve"
)

// actionFloor forces some corrective action whenever a shortfall exists.
const actionFloor = 0.01

// MFRRConfig configures the manual frequency restoration reserve balancer.
type MFRRConfig struct {
	MaxLoadReductionKW     float64 `json:"max_load_reduction_kw" yaml:"max_load_reduction_kw"`
	StorageCapacityKWh     float64 `json:"storage_capacity_kwh" yaml:"storage_capacity_kwh"`
	InitialStorageLevelKWh float64 `json:"initial_storage_level_kwh" yaml:"initial_storage_level_kwh"`
}

// ShedDecision is the outcome of one balancing call.
type ShedDecision struct {
	LoadShedKW     float64 `json:"load_shed_kw"`
	ReserveUsedKWh float64 `json:"reserve_used_kwh"`
}

// Balancer jointly decides load shedding and reserve discharge to cover a
// forecasted shortfall. Its only persistent state is the remaining storage
// level, drawn down by every decision that uses reserve.
type Balancer struct {
	maxLoadReduction float64
	storageCapacity  float64
	storageLevel     float64
}

// NewBalancer validates the configuration.
func NewBalancer(cfg MFRRConfig) (*Balancer, error) {
	if cfg.MaxLoadReductionKW < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidReduction, cfg.MaxLoadReductionKW)
	}
	if cfg.InitialStorageLevelKWh < 0 || cfg.InitialStorageLevelKWh > cfg.StorageCapacityKWh {
		return nil, fmt.Errorf("%w: level %v, capacity %v",
			ErrInvalidStorage, cfg.InitialStorageLevelKWh, cfg.StorageCapacityKWh)
	}
	return &Balancer{
		maxLoadReduction: cfg.MaxLoadReductionKW,
		storageCapacity:  cfg.StorageCapacityKWh,
		storageLevel:     cfg.InitialStorageLevelKWh,
	}, nil
}

// StorageLevel returns the remaining reserve energy in kWh.
func (b *Balancer) StorageLevel() float64 {
	return b.storageLevel
}

// Decide computes the net load from the two forecasts and, when a shortfall
// exists, solves for the cheapest combination of load shedding and reserve
// usage that covers it. Zero shortfall returns a zero decision without
// invoking the solver; solver failure also returns a zero decision (no silent
// partial action).
func (b *Balancer) Decide(loadForecast, generationForecast []float64) (ShedDecision, error) {
	if len(loadForecast) != len(generationForecast) {
		return ShedDecision{}, fmt.Errorf("%w: load %d, generation %d",
			ErrForecastMismatch, len(loadForecast), len(generationForecast))
	}

	var shortfall float64
	for i := range loadForecast {
		shortfall += math.Max(loadForecast[i]-generationForecast[i], 0)
	}
	if shortfall <= 0 {
		return ShedDecision{}, nil
	}

	// Primary goal is exact shortfall coverage; the linear term treats both
	// levers as costly.
	objective := func(x []float64) float64 {
		s := floats.Sum(x)
		return (s-shortfall)*(s-shortfall) + s
	}
	gradient := func(x, grad []float64) {
		g := 2*(floats.Sum(x)-shortfall) + 1
		grad[0] = g
		grad[1] = g
	}

	problem := solve.BoxProblem{
		Objective: objective,
		Gradient:  gradient,
		Lower:     []float64{0, 0},
		Upper: []float64{
			math.Min(b.maxLoadReduction, shortfall),
			math.Min(b.storageLevel, shortfall),
		},
		MinSum: actionFloor,
	}

	// Cover with reserves first, then shed load.
	x0 := []float64{0, math.Min(b.storageLevel, shortfall)}

	x, err := solve.MinimizeBox(problem, x0)
	if err != nil {
		return ShedDecision{}, nil
	}

	decision := ShedDecision{LoadShedKW: x[0], ReserveUsedKWh: x[1]}
	b.storageLevel -= decision.ReserveUsedKWh
	return decision, nil
}
