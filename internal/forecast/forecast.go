// Package forecast derives short-horizon demand and generation forecasts
// from historical series.
package forecast

import (
	"gonum.org/v1/gonum/stat"
)

const defaultWindow = 4

// Provider extrapolates a series by fitting a linear trend to the trailing
// window of observations.
type Provider struct {
	window int
}

// NewProvider creates a provider; a non-positive window falls back to the
// default of 4 samples.
func NewProvider(window int) *Provider {
	if window <= 0 {
		window = defaultWindow
	}
	return &Provider{window: window}
}

// Forecast returns horizon values extrapolated from the trailing trend of
// history. Forecasted values are clamped at zero since the simulated
// quantities (demand, generation) cannot be negative. An empty history
// forecasts zeros.
func (p *Provider) Forecast(history []float64, horizon int) []float64 {
	out := make([]float64, horizon)
	if len(history) == 0 || horizon <= 0 {
		return out
	}

	w := p.window
	if w > len(history) {
		w = len(history)
	}
	tail := history[len(history)-w:]

	if w == 1 {
		for i := range out {
			out[i] = clampNonNegative(tail[0])
		}
		return out
	}

	xs := make([]float64, w)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, tail, nil, false)

	for i := range out {
		out[i] = clampNonNegative(alpha + beta*float64(w+i))
	}
	return out
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
