package store

import (
	"sort"
	"sync"
	"time"

	"bess_simulator/internal/model"
)

// Store holds profile time series in memory, indexed by profile ID.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
	samples  map[string]model.Series // keyed by profile ID, sorted by timestamp
}

func New() *Store {
	return &Store{
		profiles: make(map[string]model.Profile),
		samples:  make(map[string]model.Series),
	}
}

// AddProfile registers a profile.
func (s *Store) AddProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// AddSamples appends samples to a profile's series, keeping it sorted.
func (s *Store) AddSamples(profileID string, samples model.Series) {
	if len(samples) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[profileID] = append(s.samples[profileID], samples...)
	sort.Slice(s.samples[profileID], func(i, j int) bool {
		return s.samples[profileID][i].Timestamp.Before(s.samples[profileID][j].Timestamp)
	})
}

// Profiles returns all registered profiles sorted by ID.
func (s *Store) Profiles() []model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles
}

// ByKind returns the first registered profile of the given kind.
func (s *Store) ByKind(kind model.ProfileKind) (model.Profile, bool) {
	for _, p := range s.Profiles() {
		if p.Kind == kind {
			return p, true
		}
	}
	return model.Profile{}, false
}

// Samples returns a copy of all samples held for a profile, in time order.
func (s *Store) Samples(profileID string) model.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.samples[profileID]
	cp := make(model.Series, len(series))
	copy(cp, series)
	return cp
}

// SampleCount returns the number of samples held for a profile.
func (s *Store) SampleCount(profileID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[profileID])
}

// TimeRange returns the time range covered by a profile's samples.
func (s *Store) TimeRange(profileID string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.samples[profileID]
	if len(samples) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: samples[0].Timestamp,
		End:   samples[len(samples)-1].Timestamp,
	}, true
}

// GlobalTimeRange returns the union of all profiles' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, samples := range s.samples {
		if len(samples) == 0 {
			continue
		}
		sStart := samples[0].Timestamp
		sEnd := samples[len(samples)-1].Timestamp

		if first || sStart.Before(start) {
			start = sStart
		}
		if first || sEnd.After(end) {
			end = sEnd
		}
		first = false
	}

	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// SamplesInRange returns samples between start (inclusive) and end (exclusive).
func (s *Store) SamplesInRange(profileID string, start, end time.Time) model.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.samples[profileID]
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make(model.Series, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}

// SampleAt returns the most recent sample at or before the given timestamp.
func (s *Store) SampleAt(profileID string, t time.Time) (model.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.samples[profileID]
	if len(all) == 0 {
		return model.Sample{}, false
	}

	idx := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp.After(t)
	})
	if idx == 0 {
		return model.Sample{}, false
	}
	return all[idx-1], true
}
