// Package contradiction finds sources that disagree on a metric and decides
// which one to prefer.
package contradiction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/okian/credence/internal/domain/credibility"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

const (
	// Threshold is the severity a pair must exceed to be reported.
	Threshold = 0.2

	decisiveGap         = 10.0
	decisiveConfidence  = 0.8
	ambiguousConfidence = 0.5
)

// segmentBonus rewards institutional segments during resolution.
var segmentBonus = map[model.Segment]float64{
	model.SegmentGovernment:     15,
	model.SegmentAcademic:       10,
	model.SegmentVentureCapital: 8,
}

// Resolution is the outcome of comparing two disagreeing sources. Preferred
// is nil when the sources are too close to call.
type Resolution struct {
	Preferred  *model.Source
	Confidence float64
	ScoreA     float64
	ScoreB     float64
	Rationale  string
}

// Ambiguous reports whether no source was preferred.
func (r Resolution) Ambiguous() bool {
	return r.Preferred == nil
}

// Detector compares the latest observation of each source for a metric.
type Detector struct {
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("contradiction")
	}
	return d
}

// Detect reports every pair of sources whose latest observations for metric
// disagree by more than Threshold. Pairs are ordered by source id and each
// one carries its resolution.
func (d *Detector) Detect(ctx context.Context, metric string, points []*model.KnowledgePoint) []model.Contradiction {
	defer metrics.ObserveCalculation("detect_contradictions", time.Now())

	latest := make(map[string]*model.KnowledgePoint)
	for _, p := range points {
		if p.Category != metric {
			continue
		}
		if cur, ok := latest[p.Source.ID]; !ok || !p.Timestamp.Before(cur.Timestamp) {
			latest[p.Source.ID] = p
		}
	}
	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []model.Contradiction
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := latest[ids[i]], latest[ids[j]]
			sev := Severity(a, b)
			if sev <= Threshold {
				continue
			}
			res := d.Resolve(a.Source, b.Source)
			out = append(out, model.Contradiction{
				Metric:               metric,
				SourceA:              a.Source,
				SourceB:              b.Source,
				ValueA:               display(a),
				ValueB:               display(b),
				Severity:             sev,
				ResolutionConfidence: res.Confidence,
				Preferred:            res.Preferred,
				Rationale:            res.Rationale,
			})
			metrics.RecordContradiction(res.Ambiguous())
		}
	}
	if len(out) > 0 {
		d.logger.Debug(ctx, "contradictions detected",
			logger.String("metric", metric),
			logger.Int("sources", len(ids)),
			logger.Int("pairs", len(out)),
		)
	}
	return out
}

// Severity scores the disagreement between two points in [0,1]. Numeric
// values use |a−b| relative to their mean; anything else compares content.
func Severity(a, b *model.KnowledgePoint) float64 {
	if !a.HasValue() || !b.HasValue() {
		if a.Content == b.Content {
			return 0
		}
		return 1
	}
	return RelativeDifference(*a.Value, *b.Value)
}

// RelativeDifference returns |a−b| / |(a+b)/2| clamped to [0,1]. A zero
// mean yields 0 for equal values and 1 otherwise.
func RelativeDifference(a, b float64) float64 {
	mean := math.Abs((a + b) / 2)
	if mean == 0 {
		if a == b {
			return 0
		}
		return 1
	}
	return math.Min(1, math.Abs(a-b)/mean)
}

func display(p *model.KnowledgePoint) string {
	if p.HasValue() {
		return strconv.FormatFloat(*p.Value, 'g', -1, 64)
	}
	return p.Content
}

// Score is the resolution score of src: credibility plus its segment bonus
// scaled by the source recency factor.
func (d *Detector) Score(src *model.Source) float64 {
	return src.CredibilityScore + segmentBonus[src.EffectiveSegment()]*credibility.RecencyFactor(src.LastUpdated, d.now())
}

// Resolve prefers the source whose resolution score is at least 10 higher.
// Closer scores resolve to no preference with confidence 0.5.
func (d *Detector) Resolve(a, b *model.Source) Resolution {
	r := Resolution{ScoreA: d.Score(a), ScoreB: d.Score(b)}
	gap := math.Abs(r.ScoreA - r.ScoreB)
	if gap < decisiveGap {
		r.Confidence = ambiguousConfidence
		r.Rationale = fmt.Sprintf("too close to call: %s scores %.1f, %s scores %.1f", a.ID, r.ScoreA, b.ID, r.ScoreB)
		return r
	}

	winner, loser, ws, ls := a, b, r.ScoreA, r.ScoreB
	if r.ScoreB > r.ScoreA {
		winner, loser, ws, ls = b, a, r.ScoreB, r.ScoreA
	}
	r.Preferred = winner
	r.Confidence = decisiveConfidence
	r.Rationale = fmt.Sprintf("%s preferred over %s: resolution score %.1f vs %.1f", winner.ID, loser.ID, ws, ls)
	return r
}
