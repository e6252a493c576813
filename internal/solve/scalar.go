package solve

import (
	"errors"
	"math"
)

// ErrNoConvergence is returned when a solver exhausts its iteration cap
// before reaching the requested tolerance.
var ErrNoConvergence = errors.New("solve: did not converge")

const (
	invPhi       = 0.6180339887498949 // 1/golden ratio
	scalarTol    = 1e-6
	scalarMaxIt  = 200
	flattenMaxIt = 60
)

// MinimizeScalar minimizes f over the closed interval [lo, hi] using
// golden-section search. The objective is assumed unimodal; for convex
// piecewise-linear objectives with a flat optimum, the smallest minimizing
// point is returned.
func MinimizeScalar(f func(float64) float64, lo, hi float64) (float64, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return 0, ErrNoConvergence
	}
	if hi-lo <= scalarTol {
		return lo, nil
	}

	a, b := lo, hi
	c := b - (b-a)*invPhi
	d := a + (b-a)*invPhi
	fc, fd := f(c), f(d)

	converged := false
	for i := 0; i < scalarMaxIt; i++ {
		if b-a <= scalarTol {
			converged = true
			break
		}
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - (b-a)*invPhi
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + (b-a)*invPhi
			fd = f(d)
		}
	}
	if !converged && b-a > scalarTol {
		return 0, ErrNoConvergence
	}

	x := (a + b) / 2
	fx := f(x)
	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return 0, ErrNoConvergence
	}

	// Walk down to the smallest point with the same objective value, so a
	// flat optimum resolves deterministically.
	left, right := lo, x
	for i := 0; i < flattenMaxIt && right-left > scalarTol; i++ {
		m := (left + right) / 2
		if f(m) <= fx+scalarTol {
			right = m
		} else {
			left = m
		}
	}
	return right, nil
}
