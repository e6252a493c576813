// Package config loads and validates the simulator configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bess_simulator/internal/bess"
	"bess_simulator/internal/peakshave"
	"bess_simulator/internal/reserve"
	"bess_simulator/internal/solar"
)

var ErrUnknownBatteryModel = errors.New("config: battery model must be \"simple\" or \"degrading\"")

// BatteryConfig selects and parameterizes the battery model backing the
// simulation.
type BatteryConfig struct {
	Model        string  `yaml:"model"` // "simple" (default) or "degrading"
	CapacityKWh  float64 `yaml:"capacity_kwh"`
	Efficiency   float64 `yaml:"efficiency"`
	AmbientTempC float64 `yaml:"ambient_temp_c"`
}

// Build constructs the configured battery behind the Storage capability.
func (b BatteryConfig) Build() (bess.Storage, error) {
	switch b.Model {
	case "", "simple":
		return bess.NewBattery(bess.Config{
			CapacityKWh: b.CapacityKWh,
			Efficiency:  b.Efficiency,
		})
	case "degrading":
		return bess.NewDegradingBattery(bess.DegradingConfig{
			CapacityKWh:  b.CapacityKWh,
			AmbientTempC: b.AmbientTempC,
		})
	default:
		return nil, fmt.Errorf("%w: got %q", ErrUnknownBatteryModel, b.Model)
	}
}

// SimConfig holds orchestration-loop options.
type SimConfig struct {
	StepHours       float64 `yaml:"step_hours"`
	ForecastHorizon int     `yaml:"forecast_horizon"`
	ForecastWindow  int     `yaml:"forecast_window"`
}

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Battery   BatteryConfig      `yaml:"battery"`
	FCR       reserve.FCRConfig  `yaml:"fcr"`
	MFRR      reserve.MFRRConfig `yaml:"mfrr"`
	PeakShave peakshave.Config   `yaml:"peak_shaving"`
	Solar     solar.PanelConfig  `yaml:"solar"`
	Sim       SimConfig          `yaml:"simulation"`
}

// Default returns a configuration with sensible defaults, matching the
// reference scenario: a 100 kWh battery at 95% efficiency with a 10 kWh
// base reserve.
func Default() *Config {
	return &Config{
		Battery: BatteryConfig{
			Model:        "simple",
			CapacityKWh:  100,
			Efficiency:   0.95,
			AmbientTempC: 25,
		},
		FCR: reserve.FCRConfig{
			BaseMinReserveKWh:    10,
			MaxIncreaseFactor:    1.5,
			NominalFrequencyHz:   50,
			FrequencyThresholdHz: 0.1,
		},
		MFRR: reserve.MFRRConfig{
			MaxLoadReductionKW:     500,
			StorageCapacityKWh:     1000,
			InitialStorageLevelKWh: 500,
		},
		PeakShave: peakshave.Config{
			PeakThreshold:   200,
			ReductionFactor: 0.9,
			SmoothingWindow: 5,
			SmoothingOrder:  2,
		},
		Solar: solar.PanelConfig{
			Latitude:   52.23,
			Longitude:  21.01,
			Efficiency: 0.15,
			AreaM2:     20,
		},
		Sim: SimConfig{
			StepHours:       1,
			ForecastHorizon: 4,
			ForecastWindow:  4,
		},
	}
}

// Load reads a YAML config, overlaying it onto the defaults, and validates
// the result by constructing every component.
func Load(path string) (*Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate builds each component from the configuration; any construction
// error is a configuration error.
func (c *Config) Validate() error {
	if _, err := c.Battery.Build(); err != nil {
		return fmt.Errorf("config: battery: %w", err)
	}
	if _, err := reserve.NewOptimizer(c.FCR); err != nil {
		return fmt.Errorf("config: fcr: %w", err)
	}
	if _, err := reserve.NewBalancer(c.MFRR); err != nil {
		return fmt.Errorf("config: mfrr: %w", err)
	}
	if _, err := peakshave.NewShaper(c.PeakShave); err != nil {
		return fmt.Errorf("config: peak_shaving: %w", err)
	}
	if _, err := solar.NewPanel(c.Solar); err != nil {
		return fmt.Errorf("config: solar: %w", err)
	}
	if c.Sim.StepHours <= 0 {
		return errors.New("config: simulation: step_hours must be > 0")
	}
	return nil
}
