package reserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOptimizer(t *testing.T, base float64) *Optimizer {
	t.Helper()
	o, err := NewOptimizer(FCRConfig{BaseMinReserveKWh: base})
	require.NoError(t, err)
	return o
}

func TestNewOptimizer_RejectsInvalidConfig(t *testing.T) {
	_, err := NewOptimizer(FCRConfig{BaseMinReserveKWh: -1})
	assert.ErrorIs(t, err, ErrInvalidReserve)

	_, err = NewOptimizer(FCRConfig{BaseMinReserveKWh: 10, MaxIncreaseFactor: 0.5})
	assert.ErrorIs(t, err, ErrInvalidFactor)
}

func TestOptimizer_ReleasesAboveReserve(t *testing.T) {
	o := newOptimizer(t, 10)

	// Nominal frequency and no forecasts: reserve stays at base (10).
	release, err := o.Regulate(50, 100, 50.0, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 40, release, 1e-9)
	assert.InDelta(t, 10, o.CurrentMinReserve(), 1e-9)
}

func TestOptimizer_ReleaseCappedByDemand(t *testing.T) {
	o := newOptimizer(t, 10)

	release, err := o.Regulate(50, 25, 50.0, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 25, release, 1e-9)
}

func TestOptimizer_NoReleaseAtOrBelowReserve(t *testing.T) {
	o := newOptimizer(t, 10)

	release, err := o.Regulate(10, 100, 50.0, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, release, 1e-9)

	release, err = o.Regulate(5, 100, 50.0, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, release, 1e-9)
}

func TestOptimizer_FrequencyDeviationRaisesReserve(t *testing.T) {
	o := newOptimizer(t, 10)

	// 0.3 Hz deviation: factor min(0.3/0.1, 1.5) = 1.5
	_, err := o.Regulate(50, 0, 50.3, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 15, o.CurrentMinReserve(), 1e-9)

	// Back within the threshold: reserve resets to base.
	_, err = o.Regulate(50, 0, 50.05, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, o.CurrentMinReserve(), 1e-9)
}

func TestOptimizer_ModerateDeviationScalesProportionally(t *testing.T) {
	o := newOptimizer(t, 10)

	// 0.12 Hz deviation: factor 1.2, below the cap.
	_, err := o.Regulate(50, 0, 49.88, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 12, o.CurrentMinReserve(), 1e-6)
}

func TestOptimizer_ForecastSurplusFreesReserve(t *testing.T) {
	o := newOptimizer(t, 10)

	// Renewables cover the demand forecast entirely: no reserve is worth
	// withholding, the smallest minimizer is 0.
	demand := []float64{50, 60, 55, 45}
	renewable := []float64{80, 90, 85, 75}
	release, err := o.Regulate(50, 100, 50.0, demand, renewable)
	require.NoError(t, err)
	assert.InDelta(t, 0, o.CurrentMinReserve(), 1e-3)
	assert.InDelta(t, 50, release, 1e-3)
}

func TestOptimizer_ForecastDeficitHoldsReserve(t *testing.T) {
	o := newOptimizer(t, 10)

	// Large unmet net demand: the objective decreases in r over the whole
	// feasible interval, so the reserve pins at base × factor.
	demand := []float64{200, 220, 210, 230}
	renewable := []float64{20, 30, 25, 15}
	release, err := o.Regulate(50, 100, 50.0, demand, renewable)
	require.NoError(t, err)
	assert.InDelta(t, 15, o.CurrentMinReserve(), 1e-3)
	assert.InDelta(t, 35, release, 1e-3)
}

func TestOptimizer_ReserveWithinBounds(t *testing.T) {
	o, err := NewOptimizer(FCRConfig{BaseMinReserveKWh: 10, MaxIncreaseFactor: 2})
	require.NoError(t, err)

	frequencies := []float64{49.0, 49.5, 50.0, 50.5, 51.0}
	for _, f := range frequencies {
		_, err := o.Regulate(30, 100, f, []float64{100, 100}, []float64{10, 10})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, o.CurrentMinReserve(), 0.0)
		assert.LessOrEqual(t, o.CurrentMinReserve(), 20.0+1e-9)
	}
}

func TestOptimizer_ForecastLengthMismatch(t *testing.T) {
	o := newOptimizer(t, 10)

	_, err := o.Regulate(50, 100, 50.0, []float64{1, 2, 3}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrForecastMismatch)
}

func TestOptimizer_NeverReleasesNegative(t *testing.T) {
	o := newOptimizer(t, 10)

	release, err := o.Regulate(50, -20, 50.0, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, release, 1e-9)
}
