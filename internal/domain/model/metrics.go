package model

import (
	"sort"
	"strings"
)

// Methodology is a tag describing the rigor behind a piece of evidence.
type Methodology string

const (
	PeerReviewed      Methodology = "peer_reviewed"
	Longitudinal      Methodology = "longitudinal"
	LargeSample       Methodology = "large_sample"
	CrossValidated    Methodology = "cross_validated"
	GovernmentSourced Methodology = "government_sourced"
	IndustryStandard  Methodology = "industry_standard"
)

// ParseMethodology accepts snake, kebab and spaced spellings.
func ParseMethodology(raw string) (Methodology, bool) {
	m := Methodology(strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(raw))))
	switch m {
	case PeerReviewed, Longitudinal, LargeSample, CrossValidated, GovernmentSourced, IndustryStandard:
		return m, true
	}
	return "", false
}

// MethodologySet is a de-duplicated set of declared attributes.
type MethodologySet map[Methodology]struct{}

// NewMethodologySet builds a set from tags.
func NewMethodologySet(tags ...Methodology) MethodologySet {
	s := make(MethodologySet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether tag was declared.
func (s MethodologySet) Has(tag Methodology) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the tags in lexical order.
func (s MethodologySet) Sorted() []Methodology {
	out := make([]Methodology, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Interval is a closed numeric range.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper-Lower.
func (i Interval) Width() float64 { return i.Upper - i.Lower }

// CredibilityMetrics is the output of a credibility calculation.
type CredibilityMetrics struct {
	SourceID              string   `json:"source_id"`
	BaseScore             float64  `json:"base_score"`
	MethodologyMultiplier float64  `json:"methodology_multiplier"`
	RecencyFactor         float64  `json:"recency_factor"`
	SampleSizeFactor      float64  `json:"sample_size_factor"`
	PeerReviewBonus       float64  `json:"peer_review_bonus"`
	GovernmentBonus       float64  `json:"government_bonus"`
	FinalScore            float64  `json:"final_score"`
	ConfidenceInterval    Interval `json:"confidence_interval"`
	AuthorityVerified     bool     `json:"authority_verified"`
}

// Contradiction records two sources disagreeing on a metric.
type Contradiction struct {
	Metric               string  `json:"metric"`
	SourceA              *Source `json:"-"`
	SourceB              *Source `json:"-"`
	ValueA               string  `json:"value_a"`
	ValueB               string  `json:"value_b"`
	Severity             float64 `json:"severity"`
	ResolutionConfidence float64 `json:"resolution_confidence"`
	// Preferred is nil when the sources are too close to call.
	Preferred *Source `json:"-"`
	Rationale string  `json:"rationale"`
}

// PreferredID returns the preferred source id or "".
func (c Contradiction) PreferredID() string {
	if c.Preferred == nil {
		return ""
	}
	return c.Preferred.ID
}

// MetricConfidence summarizes how much a metric can be trusted.
type MetricConfidence struct {
	Metric              string   `json:"metric"`
	PrimaryValue        float64  `json:"primary_value"`
	ConfidenceInterval  Interval `json:"confidence_interval"`
	SupportingCount     int      `json:"supporting_count"`
	ContradictingCount  int      `json:"contradicting_count"`
	SourceDiversity     float64  `json:"source_diversity"`
	MethodologyStrength float64  `json:"methodology_strength"`
	DataFreshness       float64  `json:"data_freshness"`
	FinalConfidence     float64  `json:"final_confidence"`
}
