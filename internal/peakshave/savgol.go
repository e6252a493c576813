package peakshave

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errBadWindow = errors.New("peakshave: window must be odd and larger than the polynomial order")

// savgol holds precomputed Savitzky-Golay projection coefficients for a
// window length and polynomial order.
type savgol struct {
	window int
	order  int
	// proj is (order+1)×window: polynomial coefficients fitted to a window
	// of samples. Row 0 evaluated at the window center yields the smoothed
	// value.
	proj *mat.Dense
}

func newSavgol(window, order int) (*savgol, error) {
	if window%2 == 0 || window <= order {
		return nil, errBadWindow
	}

	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		v := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, err
	}
	var proj mat.Dense
	proj.Mul(&inv, a.T())

	return &savgol{window: window, order: order, proj: &proj}, nil
}

// smooth applies the filter. Interior points use the centered convolution;
// the first and last half-window points evaluate the polynomial fitted to
// the boundary window at their offset. Series shorter than the window are
// returned unchanged.
func (s *savgol) smooth(series []float64) []float64 {
	out := make([]float64, len(series))
	if len(series) < s.window {
		copy(out, series)
		return out
	}

	half := s.window / 2
	for i := half; i < len(series)-half; i++ {
		out[i] = s.evalAt(series[i-half:i+half+1], 0)
	}
	for i := 0; i < half; i++ {
		out[i] = s.evalAt(series[:s.window], float64(i-half))
		j := len(series) - 1 - i
		out[j] = s.evalAt(series[len(series)-s.window:], float64(half-i))
	}
	return out
}

// evalAt fits the window and evaluates the polynomial at offset x from the
// window center.
func (s *savgol) evalAt(window []float64, x float64) float64 {
	var v float64
	for k := 0; k <= s.order; k++ {
		var ck float64
		for j := 0; j < s.window; j++ {
			ck += s.proj.At(k, j) * window[j]
		}
		v += ck * math.Pow(x, float64(k))
	}
	return v
}
