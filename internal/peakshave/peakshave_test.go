package peakshave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceConsumption = []float64{100, 150, 200, 300, 250, 180, 130}

func newShaper(t *testing.T, threshold float64) *Shaper {
	t.Helper()
	s, err := NewShaper(Config{PeakThreshold: threshold, ReductionFactor: 0.9})
	require.NoError(t, err)
	return s
}

func TestNewShaper_RejectsInvalidConfig(t *testing.T) {
	_, err := NewShaper(Config{PeakThreshold: 200, ReductionFactor: 0})
	assert.ErrorIs(t, err, ErrInvalidReduction)

	_, err = NewShaper(Config{PeakThreshold: 200, ReductionFactor: 1.5})
	assert.ErrorIs(t, err, ErrInvalidReduction)

	_, err = NewShaper(Config{PeakThreshold: 200, ReductionFactor: 0.9, SmoothingWindow: 4})
	assert.ErrorIs(t, err, errBadWindow)
}

func TestShaper_SmoothPreservesLength(t *testing.T) {
	s := newShaper(t, 200)
	smoothed := s.Smooth(referenceConsumption)
	assert.Len(t, smoothed, len(referenceConsumption))
}

func TestShaper_SmoothSuppressesNoise(t *testing.T) {
	s := newShaper(t, 200)
	// A noisy ramp: smoothing should land near the underlying trend.
	series := []float64{10, 22, 29, 42, 49, 62, 69, 82}
	smoothed := s.Smooth(series)
	for i, v := range smoothed {
		assert.InDelta(t, series[i], v, 6, "index %d", i)
	}
}

func TestShaper_SmoothShortSeriesUnchanged(t *testing.T) {
	s := newShaper(t, 200)
	series := []float64{5, 10, 15}
	assert.Equal(t, series, s.Smooth(series))
}

func TestShaper_DetectPeaks(t *testing.T) {
	s := newShaper(t, 200)

	smoothed := s.Smooth(referenceConsumption)
	peaks := s.DetectPeaks(smoothed)
	assert.Equal(t, []int{3}, peaks)
}

func TestShaper_DetectPeaksHeightFilter(t *testing.T) {
	s := newShaper(t, 500)
	// Local maximum exists but stays below the threshold.
	peaks := s.DetectPeaks([]float64{100, 300, 100})
	assert.Empty(t, peaks)
}

func TestShaper_ShaveCapsPeaks(t *testing.T) {
	s := newShaper(t, 200)

	adjusted, err := s.Shave(referenceConsumption)
	require.NoError(t, err)
	require.Len(t, adjusted, len(referenceConsumption))

	// The peak at index 3 must respect the reduction cap.
	assert.LessOrEqual(t, adjusted[3], 300*0.9+1e-6)
	// The quadratic penalty holds the peak close to its target while the
	// linear term shaves off a little more.
	assert.InDelta(t, 300*0.9-0.5, adjusted[3], 0.01)
}

func TestShaper_ShaveDrivesNonPeaksTowardZero(t *testing.T) {
	s := newShaper(t, 200)

	adjusted, err := s.Shave(referenceConsumption)
	require.NoError(t, err)

	for i, v := range adjusted {
		if i == 3 {
			continue
		}
		assert.InDelta(t, 0, v, 1e-3, "non-peak index %d", i)
	}
}

func TestShaper_ShaveBoundsRespected(t *testing.T) {
	s := newShaper(t, 200)

	adjusted, err := s.Shave(referenceConsumption)
	require.NoError(t, err)
	for i, v := range adjusted {
		assert.GreaterOrEqual(t, v, -1e-9, "index %d", i)
		assert.LessOrEqual(t, v, referenceConsumption[i]+1e-9, "index %d", i)
	}
}

func TestShaper_ShaveEmptySeries(t *testing.T) {
	s := newShaper(t, 200)
	adjusted, err := s.Shave(nil)
	require.NoError(t, err)
	assert.Empty(t, adjusted)
}

func TestShaper_ShaveSurfacesSolverFailure(t *testing.T) {
	s := newShaper(t, 200)

	// A NaN sample poisons the objective; the failure must surface rather
	// than returning a partially adjusted series.
	bad := []float64{100, 150, math.NaN(), 300, 250, 180, 130}
	adjusted, err := s.Shave(bad)
	assert.ErrorIs(t, err, ErrOptimizationFailed)
	assert.Nil(t, adjusted)
}

func TestSavgol_ReferenceCoefficients(t *testing.T) {
	// The classic 5-point quadratic kernel is (-3, 12, 17, 12, -3)/35.
	sg, err := newSavgol(5, 2)
	require.NoError(t, err)

	series := []float64{150, 200, 300, 250, 180}
	want := (-3*150.0 + 12*200 + 17*300 + 12*250 - 3*180) / 35.0
	got := sg.evalAt(series, 0)
	assert.InDelta(t, want, got, 1e-9)
}
