package solve

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	gradMaxIt   = 5000
	gradTol     = 1e-5
	gradStepMin = 1e-12
	armijoC     = 1e-4
	diffStep    = 1e-6
)

// BoxProblem is a minimization over box constraints Lower[i] <= x[i] <= Upper[i].
// When MinSum > 0 the feasible set additionally requires sum(x) >= MinSum.
// Gradient may be nil, in which case a central finite difference is used.
type BoxProblem struct {
	Objective func(x []float64) float64
	Gradient  func(x, grad []float64)
	Lower     []float64
	Upper     []float64
	MinSum    float64
}

// MinimizeBox runs projected gradient descent with backtracking line search
// from x0. Iterations are capped; exhausting the cap without the iterates
// settling is reported as ErrNoConvergence.
func MinimizeBox(p BoxProblem, x0 []float64) ([]float64, error) {
	n := len(x0)
	if n == 0 || len(p.Lower) != n || len(p.Upper) != n {
		return nil, ErrNoConvergence
	}

	x := make([]float64, n)
	copy(x, x0)
	p.project(x)

	grad := make([]float64, n)
	trial := make([]float64, n)

	fx := p.Objective(x)
	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return nil, ErrNoConvergence
	}

	for it := 0; it < gradMaxIt; it++ {
		p.gradient(x, grad)

		gnorm := floats.Norm(grad, 2)
		step := 1.0

		var ft float64
		accepted := false
		for step >= gradStepMin {
			floats.AddScaledTo(trial, x, -step, grad)
			p.project(trial)
			ft = p.Objective(trial)
			if ft <= fx-armijoC*step*gnorm*gnorm || ft < fx {
				accepted = true
				break
			}
			step /= 2
		}

		if !accepted {
			// No descent direction remains within the feasible set.
			return x, nil
		}

		// Converged when the iterate stops moving.
		moved := 0.0
		for i := range x {
			moved = math.Max(moved, math.Abs(trial[i]-x[i]))
		}
		copy(x, trial)
		fx = ft
		if moved < gradTol {
			return x, nil
		}
	}

	return nil, ErrNoConvergence
}

// gradient fills grad, falling back to central differences.
func (p BoxProblem) gradient(x, grad []float64) {
	if p.Gradient != nil {
		p.Gradient(x, grad)
		return
	}
	for i := range x {
		orig := x[i]
		x[i] = orig + diffStep
		fp := p.Objective(x)
		x[i] = orig - diffStep
		fm := p.Objective(x)
		x[i] = orig
		grad[i] = (fp - fm) / (2 * diffStep)
	}
}

// project clamps x into the box, then restores the minimum-sum floor by
// distributing the deficit across coordinates with remaining headroom.
func (p BoxProblem) project(x []float64) {
	for i := range x {
		if x[i] < p.Lower[i] {
			x[i] = p.Lower[i]
		}
		if x[i] > p.Upper[i] {
			x[i] = p.Upper[i]
		}
	}
	if p.MinSum <= 0 {
		return
	}
	for pass := 0; pass < len(x); pass++ {
		deficit := p.MinSum - floats.Sum(x)
		if deficit <= 0 {
			return
		}
		open := 0
		for i := range x {
			if x[i] < p.Upper[i] {
				open++
			}
		}
		if open == 0 {
			return
		}
		share := deficit / float64(open)
		for i := range x {
			if x[i] < p.Upper[i] {
				x[i] = math.Min(p.Upper[i], x[i]+share)
			}
		}
	}
}
