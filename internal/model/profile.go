package model

import "time"

type ProfileKind string

const (
	ProfileSunlight    ProfileKind = "sunlight_intensity"
	ProfileGridDemand  ProfileKind = "grid_demand"
	ProfileLoad        ProfileKind = "load_forecast"
	ProfileGeneration  ProfileKind = "generation_forecast"
	ProfileConsumption ProfileKind = "consumption"
	ProfileFrequency   ProfileKind = "grid_frequency"
)

// ProfileInfo holds display name and unit for a profile kind.
type ProfileInfo struct {
	Name string
	Unit string
}

// ProfileCatalog maps every known ProfileKind to its display name and unit.
var ProfileCatalog = map[ProfileKind]ProfileInfo{
	ProfileSunlight:    {Name: "Sunlight Intensity", Unit: "W/m²"},
	ProfileGridDemand:  {Name: "Grid Demand", Unit: "kWh"},
	ProfileLoad:        {Name: "Load Forecast", Unit: "kW"},
	ProfileGeneration:  {Name: "Generation Forecast", Unit: "kW"},
	ProfileConsumption: {Name: "Consumption", Unit: "kW"},
	ProfileFrequency:   {Name: "Grid Frequency", Unit: "Hz"},
}

// Sample is a single time-indexed value in a profile.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Series is an ordered sequence of samples.
type Series []Sample

// Values extracts the raw values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, sm := range s {
		out[i] = sm.Value
	}
	return out
}

// Profile is a named time series handed to the simulation core.
type Profile struct {
	ID   string
	Name string
	Kind ProfileKind
	Unit string
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}
