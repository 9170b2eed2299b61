package credibility

import (
	"math"
	"time"

	"github.com/okian/credence/internal/domain/model"
)

const day = 24 * time.Hour

// methodologyWeights are the multipliers of each declared attribute.
var methodologyWeights = map[model.Methodology]float64{
	model.PeerReviewed:      2.0,
	model.Longitudinal:      1.8,
	model.LargeSample:       1.6,
	model.CrossValidated:    1.5,
	model.GovernmentSourced: 1.7,
	model.IndustryStandard:  1.3,
}

const (
	extraAttributeStep = 0.1
	maxMultiplier      = 2.0
)

// MethodologyMultiplier returns the strongest declared weight plus 0.1 per
// additional distinct attribute, capped at 2.0. No attributes yields 1.0.
func MethodologyMultiplier(methods model.MethodologySet) float64 {
	best, n := 0.0, 0
	for tag := range methods {
		w, ok := methodologyWeights[tag]
		if !ok {
			continue
		}
		n++
		best = math.Max(best, w)
	}
	if n == 0 {
		return 1.0
	}
	return math.Min(maxMultiplier, best+extraAttributeStep*float64(n-1))
}

var recencyTable = []struct {
	limit  time.Duration
	factor float64
}{
	{30 * day, 1.5},
	{90 * day, 1.3},
	{180 * day, 1.1},
	{365 * day, 1.0},
	{730 * day, 0.8},
}

const (
	oldRecencyFactor     = 0.5
	unknownRecencyFactor = 1.0
)

// RecencyFactor scores how recently a source was updated. A zero
// lastUpdated means the timestamp was missing or unparseable and scores 1.0.
func RecencyFactor(lastUpdated, now time.Time) float64 {
	if lastUpdated.IsZero() {
		return unknownRecencyFactor
	}
	age := now.Sub(lastUpdated)
	for _, r := range recencyTable {
		if age < r.limit {
			return r.factor
		}
	}
	return oldRecencyFactor
}

// MaxRecencyFactor is the best recency factor; used to normalize freshness.
const MaxRecencyFactor = 1.5

var sampleTable = []struct {
	limit  int
	factor float64
}{
	{50, 0.8},
	{100, 1.0},
	{500, 1.1},
	{1000, 1.2},
	{5000, 1.3},
	{10000, 1.4},
}

// SampleSizeFactor scores a sample size; nil or negative is unknown (1.0).
func SampleSizeFactor(n *int) float64 {
	if n == nil || *n < 0 {
		return 1.0
	}
	for _, s := range sampleTable {
		if *n < s.limit {
			return s.factor
		}
	}
	return 1.5
}

const (
	baseMargin            = 5.0
	peerReviewedMargin    = 2.0
	largeSampleMargin     = 1.5
	crossValidatedMargin  = 1.0
	maxSampleMarginCredit = 2.0
	minMargin             = 1.0
)

// ConfidenceMargin returns the half-width of the credibility interval.
func ConfidenceMargin(methods model.MethodologySet, n *int) float64 {
	margin := baseMargin
	if methods.Has(model.PeerReviewed) {
		margin -= peerReviewedMargin
	}
	if methods.Has(model.LargeSample) {
		margin -= largeSampleMargin
	}
	if methods.Has(model.CrossValidated) {
		margin -= crossValidatedMargin
	}
	if n != nil && *n >= 1 {
		margin -= math.Min(maxSampleMarginCredit, math.Log10(float64(*n)))
	}
	return math.Max(minMargin, margin)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
