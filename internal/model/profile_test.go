package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileKind(t *testing.T) {
	assert.Equal(t, ProfileKind("grid_demand"), ProfileGridDemand)
	assert.Equal(t, "kWh", ProfileCatalog[ProfileGridDemand].Unit)
}

func TestSeriesValues(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := Series{
		{Timestamp: ts, Value: 12.5},
		{Timestamp: ts.Add(time.Hour), Value: 14.0},
	}

	assert.Equal(t, []float64{12.5, 14.0}, s.Values())
}
