// Package ingest loads JSON profile time series from disk and hands them to
// the simulation core as plain in-memory sequences.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bess_simulator/internal/model"
	"bess_simulator/internal/store"
)

var (
	ErrNoValues    = errors.New("ingest: profile has no values")
	ErrUnknownKind = errors.New("ingest: unknown profile kind")
	ErrBadStep     = errors.New("ingest: step_seconds must be > 0")
)

// profileFile is the on-disk JSON shape. Either a dense values array with
// start/step, or explicit timestamped samples.
type profileFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Unit        string    `json:"unit"`
	Start       time.Time `json:"start"`
	StepSeconds int       `json:"step_seconds"`
	Values      []float64 `json:"values"`
	Samples     []struct {
		Time  time.Time `json:"time"`
		Value float64   `json:"value"`
	} `json:"samples"`
}

// Parse reads one JSON profile.
func Parse(r io.Reader) (model.Profile, model.Series, error) {
	var pf profileFile
	if err := json.NewDecoder(r).Decode(&pf); err != nil {
		return model.Profile{}, nil, fmt.Errorf("ingest: decode profile: %w", err)
	}

	kind := model.ProfileKind(pf.Kind)
	info, ok := model.ProfileCatalog[kind]
	if !ok {
		return model.Profile{}, nil, fmt.Errorf("%w: %q", ErrUnknownKind, pf.Kind)
	}

	profile := model.Profile{
		ID:   pf.ID,
		Name: pf.Name,
		Kind: kind,
		Unit: pf.Unit,
	}
	if profile.ID == "" {
		profile.ID = pf.Kind
	}
	if profile.Name == "" {
		profile.Name = info.Name
	}
	if profile.Unit == "" {
		profile.Unit = info.Unit
	}

	var series model.Series
	switch {
	case len(pf.Samples) > 0:
		series = make(model.Series, len(pf.Samples))
		for i, s := range pf.Samples {
			series[i] = model.Sample{Timestamp: s.Time, Value: s.Value}
		}
	case len(pf.Values) > 0:
		if pf.StepSeconds <= 0 {
			return model.Profile{}, nil, ErrBadStep
		}
		step := time.Duration(pf.StepSeconds) * time.Second
		series = make(model.Series, len(pf.Values))
		for i, v := range pf.Values {
			series[i] = model.Sample{Timestamp: pf.Start.Add(time.Duration(i) * step), Value: v}
		}
	default:
		return model.Profile{}, nil, ErrNoValues
	}

	return profile, series, nil
}

// LoadFile parses a single profile file.
func LoadFile(path string) (model.Profile, model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Profile{}, nil, err
	}
	defer f.Close()
	return Parse(f)
}

// LoadDir loads every .json profile in dir into the store and returns the
// number of profiles loaded.
func LoadDir(dir string, st *store.Store) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		profile, series, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, fmt.Errorf("ingest: %s: %w", e.Name(), err)
		}
		st.AddProfile(profile)
		st.AddSamples(profile.ID, series)
		loaded++
	}
	return loaded, nil
}
