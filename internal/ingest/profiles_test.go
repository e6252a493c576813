package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bess_simulator/internal/model"
	"bess_simulator/internal/store"
)

const denseProfile = `{
  "kind": "grid_demand",
  "start": "2024-06-15T00:00:00Z",
  "step_seconds": 3600,
  "values": [10, 20, 30]
}`

const sampledProfile = `{
  "id": "pv",
  "name": "Rooftop PV",
  "kind": "sunlight_intensity",
  "unit": "W/m²",
  "samples": [
    {"time": "2024-06-15T06:00:00Z", "value": 120},
    {"time": "2024-06-15T07:00:00Z", "value": 340}
  ]
}`

func TestParse_DenseValues(t *testing.T) {
	profile, series, err := Parse(strings.NewReader(denseProfile))
	require.NoError(t, err)

	// Defaults are filled from the catalog.
	assert.Equal(t, "grid_demand", profile.ID)
	assert.Equal(t, model.ProfileGridDemand, profile.Kind)
	assert.Equal(t, "Grid Demand", profile.Name)
	assert.Equal(t, "kWh", profile.Unit)

	require.Len(t, series, 3)
	start := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, series[0].Timestamp)
	assert.Equal(t, start.Add(2*time.Hour), series[2].Timestamp)
	assert.InDelta(t, 30, series[2].Value, 0.01)
}

func TestParse_ExplicitSamples(t *testing.T) {
	profile, series, err := Parse(strings.NewReader(sampledProfile))
	require.NoError(t, err)

	assert.Equal(t, "pv", profile.ID)
	assert.Equal(t, "Rooftop PV", profile.Name)
	require.Len(t, series, 2)
	assert.InDelta(t, 340, series[1].Value, 0.01)
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse(strings.NewReader(`{"kind": "weird", "values": [1], "step_seconds": 60}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, _, err = Parse(strings.NewReader(`{"kind": "grid_demand"}`))
	assert.ErrorIs(t, err, ErrNoValues)

	_, _, err = Parse(strings.NewReader(`{"kind": "grid_demand", "values": [1, 2]}`))
	assert.ErrorIs(t, err, ErrBadStep)

	_, _, err = Parse(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demand.json"), []byte(denseProfile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pv.json"), []byte(sampledProfile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	st := store.New()
	loaded, err := LoadDir(dir, st)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 3, st.SampleCount("grid_demand"))
	assert.Equal(t, 2, st.SampleCount("pv"))

	_, ok := st.ByKind(model.ProfileSunlight)
	assert.True(t, ok)
}
