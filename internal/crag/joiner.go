package crag

import "github.com/i474232898/crag-cast/internal/weather"

// Joiner matches crags to rows of the static weather dataset by join key.
type Joiner struct {
	byKey map[string]WeatherRecord
}

// NewJoiner indexes rows by join key. When two rows share a key the first
// one wins; rows without a key are never matched.
func NewJoiner(rows []WeatherRecord) *Joiner {
	j := &Joiner{byKey: make(map[string]WeatherRecord, len(rows))}
	for _, w := range rows {
		if w.JoinKey == "" {
			continue
		}
		if _, ok := j.byKey[w.JoinKey]; !ok {
			j.byKey[w.JoinKey] = w
		}
	}
	return j
}

// WeatherFor returns the dataset snapshot for c. A crag without coordinates
// or without a matching row yields (nil, false).
func (j *Joiner) WeatherFor(c CragRecord) (*weather.Snapshot, bool) {
	return j.Lookup(c.JoinKey)
}

// Lookup is WeatherFor by raw join key.
func (j *Joiner) Lookup(key string) (*weather.Snapshot, bool) {
	if key == "" {
		return nil, false
	}
	w, ok := j.byKey[key]
	if !ok {
		return nil, false
	}
	return w.Snapshot(), true
}
