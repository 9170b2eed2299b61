// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TrustTier is the static trust class a source is registered with.
type TrustTier string

const (
	TierGovernment  TrustTier = "government"
	TierAcademic    TrustTier = "academic"
	TierIndustry    TrustTier = "industry"
	TierCommunity   TrustTier = "community"
	TierProprietary TrustTier = "proprietary"
)

// Valid reports whether t is one of the known tiers.
func (t TrustTier) Valid() bool {
	switch t {
	case TierGovernment, TierAcademic, TierIndustry, TierCommunity, TierProprietary:
		return true
	}
	return false
}

// Segment is the coarse organization type used for diversity scoring and
// resolution bonuses. It is declared at registration time.
type Segment string

const (
	SegmentGovernment     Segment = "government"
	SegmentAcademic       Segment = "academic"
	SegmentVentureCapital Segment = "venture_capital"
	SegmentIndustry       Segment = "industry"
	SegmentOther          Segment = "other"
)

// Valid reports whether s is one of the known segments.
func (s Segment) Valid() bool {
	switch s {
	case SegmentGovernment, SegmentAcademic, SegmentVentureCapital, SegmentIndustry, SegmentOther:
		return true
	}
	return false
}

// SegmentForTier maps a trust tier to its default segment.
func SegmentForTier(t TrustTier) Segment {
	switch t {
	case TierGovernment:
		return SegmentGovernment
	case TierAcademic:
		return SegmentAcademic
	case TierIndustry:
		return SegmentIndustry
	default:
		return SegmentOther
	}
}

// RateLimit describes how often a source may be polled by its fetcher.
// A zero value means unlimited.
type RateLimit struct {
	Requests int           `koanf:"requests" yaml:"requests"`
	Per      time.Duration `koanf:"per" yaml:"per"`
}

// Unlimited reports whether no limit is configured.
func (r RateLimit) Unlimited() bool {
	return r.Requests <= 0 || r.Per <= 0
}

// String renders the descriptor as "N/duration".
func (r RateLimit) String() string {
	if r.Unlimited() {
		return "unlimited"
	}
	return fmt.Sprintf("%d/%s", r.Requests, r.Per)
}

// Source is a registered data provider with a static trust profile.
// Sources are immutable once registered and shared by pointer.
type Source struct {
	ID               string
	Name             string
	Organization     string
	Tier             TrustTier
	Segment          Segment
	CredibilityScore float64
	Cost             float64
	RateLimit        RateLimit
	Active           bool
	Categories       []string
	// Methodology is a free-text description of how the source collects data.
	Methodology string
	// LastUpdated is zero when unknown or unparseable.
	LastUpdated time.Time
}

// EffectiveSegment returns the declared segment or the tier default.
func (s *Source) EffectiveSegment() Segment {
	if s.Segment.Valid() {
		return s.Segment
	}
	return SegmentForTier(s.Tier)
}

// Covers reports whether the source declares category. Sources without
// declared categories cover everything.
func (s *Source) Covers(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in source catalogs.
// It returns false when none match; callers treat that as unknown.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
