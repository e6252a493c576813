package solve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimizeScalar_Quadratic(t *testing.T) {
	f := func(x float64) float64 { return (x - 3) * (x - 3) }
	x, err := MinimizeScalar(f, 0, 10)
	require.NoError(t, err)
	// The smallest-minimizer walk biases a shallow quadratic floor slightly
	// left of the true optimum.
	assert.InDelta(t, 3, x, 5e-3)
}

func TestMinimizeScalar_BoundaryOptimum(t *testing.T) {
	f := func(x float64) float64 { return x }
	x, err := MinimizeScalar(f, 2, 8)
	require.NoError(t, err)
	assert.InDelta(t, 2, x, 1e-4)
}

func TestMinimizeScalar_FlatRegionPicksSmallest(t *testing.T) {
	// Flat on [4, 10]: a convex piecewise-linear valley.
	f := func(x float64) float64 { return math.Max(4-x, 0) }
	x, err := MinimizeScalar(f, 0, 10)
	require.NoError(t, err)
	assert.InDelta(t, 4, x, 1e-3)
}

func TestMinimizeScalar_Deterministic(t *testing.T) {
	f := func(x float64) float64 { return math.Abs(x - 7.25) }
	x1, err := MinimizeScalar(f, 0, 20)
	require.NoError(t, err)
	x2, err := MinimizeScalar(f, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, x1, x2)
}

func TestMinimizeScalar_InvalidInterval(t *testing.T) {
	f := func(x float64) float64 { return x * x }
	_, err := MinimizeScalar(f, 5, 1)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestMinimizeBox_Quadratic(t *testing.T) {
	p := BoxProblem{
		Objective: func(x []float64) float64 {
			return (x[0]-2)*(x[0]-2) + (x[1]+1)*(x[1]+1)
		},
		Lower: []float64{0, 0},
		Upper: []float64{10, 10},
	}
	x, err := MinimizeBox(p, []float64{5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 2, x[0], 1e-3)
	// x[1] optimum (-1) is outside the box, clamps to 0.
	assert.InDelta(t, 0, x[1], 1e-3)
}

func TestMinimizeBox_MinSumFloor(t *testing.T) {
	p := BoxProblem{
		Objective: func(x []float64) float64 { return x[0] + x[1] },
		Lower:     []float64{0, 0},
		Upper:     []float64{5, 5},
		MinSum:    1,
	}
	x, err := MinimizeBox(p, []float64{3, 3})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, x[0]+x[1], 1-1e-6)
}

func TestMinimizeBox_ExplicitGradient(t *testing.T) {
	p := BoxProblem{
		Objective: func(x []float64) float64 { return (x[0] - 4) * (x[0] - 4) },
		Gradient: func(x, grad []float64) {
			grad[0] = 2 * (x[0] - 4)
		},
		Lower: []float64{0},
		Upper: []float64{10},
	}
	x, err := MinimizeBox(p, []float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 4, x[0], 1e-3)
}

func TestMinimizeBox_BadDimensions(t *testing.T) {
	p := BoxProblem{
		Objective: func(x []float64) float64 { return 0 },
		Lower:     []float64{0},
		Upper:     []float64{1, 2},
	}
	_, err := MinimizeBox(p, []float64{0, 0})
	assert.ErrorIs(t, err, ErrNoConvergence)
}
