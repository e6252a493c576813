// Package peakshave flattens consumption peaks through constrained
// optimization over the full series.
package peakshave

import (
	"errors"
	"fmt"
	"math"

	"bess_simulator/internal/solve"
)

var (
	// ErrOptimizationFailed is surfaced when the peak-shaving solver does
	// not converge. Unlike the FCR/mFRR components there is no silent
	// fallback: skipping the correction would violate the caller's request.
	ErrOptimizationFailed = errors.New("peakshave: optimization failed")

	ErrInvalidReduction = errors.New("peakshave: reduction factor must be in (0, 1]")
)

const (
	defaultWindow = 5
	defaultOrder  = 2
)

// Config configures the peak shaver.
type Config struct {
	PeakThreshold   float64 `json:"peak_threshold" yaml:"peak_threshold"`
	ReductionFactor float64 `json:"reduction_factor" yaml:"reduction_factor"`
	SmoothingWindow int     `json:"smoothing_window" yaml:"smoothing_window"`
	SmoothingOrder  int     `json:"smoothing_order" yaml:"smoothing_order"`
}

// Shaper smooths a consumption series, detects peaks above the threshold on
// the smoothed series, and solves for an adjusted series whose peaks are
// capped at consumption×reductionFactor.
type Shaper struct {
	threshold float64
	reduction float64
	filter    *savgol
}

// NewShaper validates the configuration. The default smoother is a
// 5-point, order-2 Savitzky-Golay filter.
func NewShaper(cfg Config) (*Shaper, error) {
	if cfg.ReductionFactor <= 0 || cfg.ReductionFactor > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidReduction, cfg.ReductionFactor)
	}
	if cfg.SmoothingWindow == 0 {
		cfg.SmoothingWindow = defaultWindow
	}
	if cfg.SmoothingOrder == 0 {
		cfg.SmoothingOrder = defaultOrder
	}
	filter, err := newSavgol(cfg.SmoothingWindow, cfg.SmoothingOrder)
	if err != nil {
		return nil, err
	}
	return &Shaper{
		threshold: cfg.PeakThreshold,
		reduction: cfg.ReductionFactor,
		filter:    filter,
	}, nil
}

// Smooth returns the Savitzky-Golay smoothed series.
func (s *Shaper) Smooth(series []float64) []float64 {
	return s.filter.smooth(series)
}

// DetectPeaks returns the indices of local maxima exceeding the threshold.
// Endpoints are not considered peaks.
func (s *Shaper) DetectPeaks(series []float64) []int {
	var peaks []int
	for i := 1; i < len(series)-1; i++ {
		if series[i] >= s.threshold && series[i] > series[i-1] && series[i] > series[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// Shave returns the adjusted consumption series. Peaks are detected on the
// smoothed series but the correction is applied to the original one: the
// solver minimizes the total adjusted consumption plus a quadratic penalty
// pulling each peak toward consumption×reductionFactor, under the hard cap
// adjusted[p] <= consumption[p]×reductionFactor. Samples are bounded by
// [0, consumption[i]], which keeps the linear term bounded; non-peak samples
// drift toward zero exactly as the objective dictates.
//
// A non-converged solve returns ErrOptimizationFailed and no series.
func (s *Shaper) Shave(consumption []float64) ([]float64, error) {
	if len(consumption) == 0 {
		return []float64{}, nil
	}

	smoothed := s.Smooth(consumption)
	peaks := s.DetectPeaks(smoothed)

	isPeak := make([]bool, len(consumption))
	target := make([]float64, len(consumption))
	for _, p := range peaks {
		isPeak[p] = true
		target[p] = consumption[p] * s.reduction
	}

	lower := make([]float64, len(consumption))
	upper := make([]float64, len(consumption))
	for i, c := range consumption {
		upper[i] = math.Max(c, 0)
		if isPeak[i] {
			upper[i] = math.Min(upper[i], target[i])
		}
	}

	problem := solve.BoxProblem{
		Objective: func(x []float64) float64 {
			var total float64
			for i, v := range x {
				total += v
				if isPeak[i] {
					d := v - target[i]
					total += d * d
				}
			}
			return total
		},
		Gradient: func(x, grad []float64) {
			for i := range x {
				grad[i] = 1
				if isPeak[i] {
					grad[i] += 2 * (x[i] - target[i])
				}
			}
		},
		Lower: lower,
		Upper: upper,
	}

	x0 := make([]float64, len(consumption))
	copy(x0, consumption)

	adjusted, err := solve.MinimizeBox(problem, x0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimizationFailed, err)
	}
	return adjusted, nil
}
