// Package solar produces available PV power series for the simulation core.
// The core only consumes the resulting sequence and is agnostic to whether it
// came from a clear-sky model, measurements, or synthetic data.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"bess_simulator/internal/model"
)

var (
	ErrInvalidEfficiency = errors.New("solar: efficiency must be in (0, 1]")
	ErrInvalidArea       = errors.New("solar: area must be > 0")
)

const defaultPeakIrradiance = 1000.0 // W/m² at zenith under clear sky

// PanelConfig describes a PV installation.
type PanelConfig struct {
	Latitude          float64 `json:"latitude" yaml:"latitude"`
	Longitude         float64 `json:"longitude" yaml:"longitude"`
	Efficiency        float64 `json:"efficiency" yaml:"efficiency"`
	AreaM2            float64 `json:"area_m2" yaml:"area_m2"`
	PeakIrradianceWm2 float64 `json:"peak_irradiance_wm2" yaml:"peak_irradiance_wm2"`
}

// Panel is a clear-sky PV power producer based on the sun's altitude at the
// configured location.
type Panel struct {
	lat, lon   float64
	efficiency float64
	areaM2     float64
	peakWm2    float64
}

func NewPanel(cfg PanelConfig) (*Panel, error) {
	if cfg.Efficiency <= 0 || cfg.Efficiency > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEfficiency, cfg.Efficiency)
	}
	if cfg.AreaM2 <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidArea, cfg.AreaM2)
	}
	if cfg.PeakIrradianceWm2 == 0 {
		cfg.PeakIrradianceWm2 = defaultPeakIrradiance
	}
	return &Panel{
		lat:        cfg.Latitude,
		lon:        cfg.Longitude,
		efficiency: cfg.Efficiency,
		areaM2:     cfg.AreaM2,
		peakWm2:    cfg.PeakIrradianceWm2,
	}, nil
}

// PowerAt returns the available PV power (kW) at t. Below the horizon the
// panel produces nothing; above it, irradiance scales with the sine of the
// sun's altitude.
func (p *Panel) PowerAt(t time.Time) float64 {
	pos := suncalc.GetPosition(t, p.lat, p.lon)
	if pos.Altitude <= 0 {
		return 0
	}
	irradiance := p.peakWm2 * math.Sin(pos.Altitude)
	return irradiance * p.areaM2 * p.efficiency / 1000
}

// GeneratePower converts a raw sunlight intensity (W/m²) into panel output
// (kW), for callers that supply their own irradiance profile.
func (p *Panel) GeneratePower(intensityWm2 float64) float64 {
	if intensityWm2 <= 0 {
		return 0
	}
	return intensityWm2 * p.areaM2 * p.efficiency / 1000
}

// HourlySeries produces the clear-sky power series (kW) for each hour in
// [tr.Start, tr.End).
func (p *Panel) HourlySeries(tr model.TimeRange) model.Series {
	var series model.Series
	for t := tr.Start; t.Before(tr.End); t = t.Add(time.Hour) {
		series = append(series, model.Sample{Timestamp: t, Value: p.PowerAt(t)})
	}
	return series
}

// NoisySeries is HourlySeries scaled by a per-sample cloudiness factor drawn
// from a Beta(5, 2) distribution, for synthetic profile generation. The seed
// makes the series reproducible.
func (p *Panel) NoisySeries(tr model.TimeRange, seed uint64) model.Series {
	cloud := distuv.Beta{Alpha: 5, Beta: 2, Src: rand.NewSource(seed)}
	series := p.HourlySeries(tr)
	for i := range series {
		if series[i].Value > 0 {
			series[i].Value *= cloud.Rand()
		}
	}
	return series
}
