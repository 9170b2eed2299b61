// Package freshness maps the age of an observation to a discrete tier and
// the decay weight aggregation applies to it.
package freshness

import "time"

// Tier is a freshness bucket.
type Tier string

const (
	RealTime  Tier = "real_time"
	Daily     Tier = "daily"
	Weekly    Tier = "weekly"
	Monthly   Tier = "monthly"
	Quarterly Tier = "quarterly"
	Annual    Tier = "annual"
	Stale     Tier = "stale"
)

const day = 24 * time.Hour

// bounds are upper limits (exclusive) checked in order; anything past the
// last bound is stale.
var bounds = []struct {
	limit  time.Duration
	tier   Tier
	weight float64
}{
	{time.Hour, RealTime, 1.00},
	{day, Daily, 0.95},
	{7 * day, Weekly, 0.85},
	{30 * day, Monthly, 0.75},
	{90 * day, Quarterly, 0.60},
	{365 * day, Annual, 0.40},
}

const staleWeight = 0.10

// Classify returns the tier for age. Boundary ages resolve to the fresher tier
// and negative ages (future timestamps) are real-time.
func Classify(age time.Duration) Tier {
	for _, b := range bounds {
		if age < b.limit {
			return b.tier
		}
	}
	return Stale
}

// Weight returns the decay weight of t.
func (t Tier) Weight() float64 {
	for _, b := range bounds {
		if b.tier == t {
			return b.weight
		}
	}
	return staleWeight
}

// At classifies a timestamp relative to now.
func At(ts, now time.Time) Tier {
	return Classify(now.Sub(ts))
}

// WeightAt returns the decay weight of a timestamp relative to now.
func WeightAt(ts, now time.Time) float64 {
	return At(ts, now).Weight()
}

// Tiers lists every tier from freshest to stalest.
func Tiers() []Tier {
	out := make([]Tier, 0, len(bounds)+1)
	for _, b := range bounds {
		out = append(out, b.tier)
	}
	return append(out, Stale)
}
