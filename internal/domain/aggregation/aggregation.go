// Package aggregation condenses stored points into weighted averages and
// per-metric confidence summaries.
//
// Two weighting schemes coexist on purpose. WeightedAverage weights by
// credibility × confidence × freshness; MetricConfidence weights its primary
// value by credibility alone.
package aggregation

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/okian/credence/internal/domain/credibility"
	"github.com/okian/credence/internal/domain/freshness"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

// Field selects what WeightedAverage averages.
type Field string

const (
	FieldValue      Field = "value"
	FieldConfidence Field = "confidence"
)

// ParseField accepts the field names used by the query surface.
func ParseField(raw string) (Field, bool) {
	switch Field(strings.ToLower(strings.TrimSpace(raw))) {
	case FieldValue, "numerical_value":
		return FieldValue, true
	case FieldConfidence:
		return FieldConfidence, true
	}
	return "", false
}

const (
	segmentCount        = 4.0
	fullSupportCount    = 3.0
	smallSampleMargin   = 0.10
	zScore95            = 1.96
	contradictionWeight = 0.2
)

// Aggregator computes aggregates over points it is handed; it keeps no state.
type Aggregator struct {
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("aggregation")
	}
	return a
}

// WeightedAverage averages field over points, weighting each by source
// credibility × point confidence × freshness weight. The second result is
// min(1, Σweight / (100 × n)). No qualifying points, or a zero weight sum,
// yields (0, 0).
func (a *Aggregator) WeightedAverage(ctx context.Context, points []*model.KnowledgePoint, field Field) (float64, float64) {
	defer metrics.ObserveCalculation("weighted_average", time.Now())

	now := a.now()
	var sum, weights float64
	n := 0
	for _, p := range points {
		v, ok := fieldValue(p, field)
		if !ok {
			continue
		}
		w := p.Source.CredibilityScore * p.Confidence * freshness.WeightAt(p.Timestamp, now)
		sum += v * w
		weights += w
		n++
	}
	if n == 0 || weights == 0 {
		a.logger.Debug(ctx, "weighted average has no qualifying points", logger.String("field", string(field)))
		return 0, 0
	}
	return sum / weights, math.Min(1, weights/(100*float64(n)))
}

func fieldValue(p *model.KnowledgePoint, field Field) (float64, bool) {
	switch field {
	case FieldValue:
		if !p.HasValue() {
			return 0, false
		}
		return *p.Value, true
	case FieldConfidence:
		return p.Confidence, true
	}
	return 0, false
}

// MetricConfidence summarizes how far the points recorded for metric can be
// trusted. Points of other categories are ignored. contradicting is the
// number of contradictions reported for the metric.
func (a *Aggregator) MetricConfidence(ctx context.Context, metric string, points []*model.KnowledgePoint, contradicting int) model.MetricConfidence {
	defer metrics.ObserveCalculation("metric_confidence", time.Now())

	out := model.MetricConfidence{Metric: metric, ContradictingCount: contradicting}
	relevant := make([]*model.KnowledgePoint, 0, len(points))
	for _, p := range points {
		if p.Category == metric {
			relevant = append(relevant, p)
		}
	}
	if ignored := len(points) - len(relevant); ignored > 0 {
		a.logger.Debug(ctx, "metric confidence ignored points of other categories",
			logger.String("metric", metric),
			logger.Int("ignored", ignored),
			logger.Int("kept", len(relevant)),
		)
	}
	if len(relevant) == 0 {
		return out
	}

	now := a.now()
	out.SupportingCount = len(relevant)

	var values []float64
	var weighted, weights float64
	segments := make(map[model.Segment]struct{})
	var strength, fresh float64
	for _, p := range relevant {
		cred := p.Source.CredibilityScore / 100
		if p.HasValue() {
			values = append(values, *p.Value)
			weighted += *p.Value * cred
			weights += cred
		}
		segments[p.Source.EffectiveSegment()] = struct{}{}
		strength += math.Min(1, cred+methodologySignal(p.Source.Methodology))
		fresh += math.Min(1, credibility.RecencyFactor(p.Source.LastUpdated, now)/credibility.MaxRecencyFactor)
	}
	if weights > 0 {
		out.PrimaryValue = weighted / weights
	}

	n := float64(len(relevant))
	out.ConfidenceInterval = interval(out.PrimaryValue, values)
	out.SourceDiversity = math.Min(1, float64(len(segments))/segmentCount)
	out.MethodologyStrength = strength / n
	out.DataFreshness = fresh / n

	final := 0.3*math.Min(1, n/fullSupportCount) +
		0.2*out.SourceDiversity +
		0.3*out.MethodologyStrength +
		0.2*out.DataFreshness -
		contradictionWeight*float64(contradicting)
	out.FinalConfidence = math.Max(0, math.Min(1, final))

	a.logger.Debug(ctx, "metric confidence",
		logger.String("metric", metric),
		logger.Int("points", len(relevant)),
		logger.Int("contradicting", contradicting),
		logger.Float64("final", out.FinalConfidence),
	)
	return out
}

// methodologySignal scores how rigorous a free-text methodology sounds.
func methodologySignal(desc string) float64 {
	d := strings.ToLower(desc)
	signal := 0.0
	if strings.Contains(d, "peer review") || strings.Contains(d, "peer-review") || strings.Contains(d, "peer_review") {
		signal += 0.2
	}
	if strings.Contains(d, "longitudinal") {
		signal += 0.15
	}
	if strings.Contains(d, "study") || strings.Contains(d, "studies") {
		signal += 0.1
	}
	return signal
}

// interval is ±10% of primary with fewer than two samples, otherwise
// primary ± 1.96 standard errors with the lower bound floored at 0.
func interval(primary float64, values []float64) model.Interval {
	if len(values) < 2 {
		margin := math.Abs(primary) * smallSampleMargin
		return model.Interval{Lower: primary - margin, Upper: primary + margin}
	}
	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	stderr := math.Sqrt(ss/(n-1)) / math.Sqrt(n)
	margin := zScore95 * stderr
	return model.Interval{Lower: math.Max(0, primary-margin), Upper: primary + margin}
}
