// Package report replays an observation feed through a private engine and
// summarizes what it concludes per category.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	service "github.com/okian/credence/internal/app"
	"github.com/okian/credence/internal/domain/aggregation"
	"github.com/okian/credence/internal/domain/ingest"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/internal/domain/registry"
	"github.com/okian/credence/internal/fetch"
	"github.com/okian/credence/pkg/logger"
)

// Rejection reasons that do not come from the validator.
const (
	reasonUnknownSource = "unknown_source"
	reasonInvalid       = "invalid_observation"
)

// Summary is the outcome of a report run.
type Summary struct {
	Feed         string         `json:"feed"`
	Generated    time.Time      `json:"generated"`
	Observations int            `json:"observations"`
	Accepted     int            `json:"accepted"`
	Duplicates   int            `json:"duplicates"`
	Rejected     map[string]int `json:"rejected,omitempty"`

	// Undeclared counts accepted observations whose source does not list
	// the category among the ones it covers.
	Undeclared  int                 `json:"undeclared"`
	Categories  []CategorySummary   `json:"categories"`
	Credibility []SourceCredibility `json:"credibility"`
}

// SourceCredibility is the credibility of a contributing source under the
// declared methodology.
type SourceCredibility struct {
	SourceID string                   `json:"source_id"`
	Metrics  model.CredibilityMetrics `json:"metrics"`
}

// CategorySummary is what the engine concludes about one category.
type CategorySummary struct {
	Category        string                 `json:"category"`
	Points          int                    `json:"points"`
	Field           aggregation.Field      `json:"field"`
	WeightedValue   float64                `json:"weighted_value"`
	ValueConfidence float64                `json:"value_confidence"`
	Confidence      model.MetricConfidence `json:"confidence"`
	Contradictions  []ContradictionView    `json:"contradictions,omitempty"`
}

// ContradictionView flattens a contradiction for output.
type ContradictionView struct {
	SourceA              string  `json:"source_a"`
	SourceB              string  `json:"source_b"`
	ValueA               string  `json:"value_a"`
	ValueB               string  `json:"value_b"`
	Severity             float64 `json:"severity"`
	Preferred            string  `json:"preferred,omitempty"`
	ResolutionConfidence float64 `json:"resolution_confidence"`
	Rationale            string  `json:"rationale"`
}

// Run loads the feed named by cfg, ingests it and builds the summary.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	observations, err := fetch.LoadFeed(cfg.FeedPath)
	if err != nil {
		return Summary{}, err
	}

	engine, err := service.New(ctx,
		service.WithExtraSources(cfg.Sources),
		service.WithMinCredibility(cfg.MinCredibility),
		service.WithMinConfidence(cfg.MinConfidence),
		service.WithLogger(logger.Get().Named("report")),
	)
	if err != nil {
		return Summary{}, fmt.Errorf("build engine: %w", err)
	}

	s, err := Build(ctx, engine, observations, cfg.Query)
	if err != nil {
		return Summary{}, err
	}
	s.Feed = cfg.FeedPath
	return s, nil
}

// Build ingests observations synchronously into engine and summarizes the
// categories named by q, or every stored category when none are given.
func Build(ctx context.Context, engine *service.Engine, observations []model.Observation, q Query) (Summary, error) {
	if q.Field == "" {
		q.Field = aggregation.FieldValue
	}
	s := Summary{
		Generated:    time.Now().UTC(),
		Observations: len(observations),
		Rejected:     make(map[string]int),
	}
	log := logger.Get().Named("report")
	contributors := make(map[string]struct{})

	for _, obs := range observations {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		out, err := engine.IngestPoint(ctx, obs)
		switch {
		case errors.Is(err, registry.ErrUnknownSource):
			s.Rejected[reasonUnknownSource]++
			continue
		case errors.Is(err, ingest.ErrInvalidObservation):
			s.Rejected[reasonInvalid]++
			continue
		case err != nil:
			return Summary{}, fmt.Errorf("ingest %s: %w", obs.ID(), err)
		}
		switch {
		case out.Duplicate:
			s.Duplicates++
		case out.Accepted:
			s.Accepted++
			contributors[obs.SourceID] = struct{}{}
			if src, err := engine.Source(ctx, obs.SourceID); err == nil && !src.Covers(obs.Category) {
				s.Undeclared++
			}
		default:
			s.Rejected[string(out.Reason)]++
		}
	}

	categories := q.Categories
	if len(categories) == 0 {
		categories = engine.Stats(ctx).Categories
	}
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)

	for _, category := range sorted {
		cs, err := summarize(ctx, engine, category, q.Field)
		if err != nil {
			return Summary{}, err
		}
		s.Categories = append(s.Categories, cs)
	}

	ids := make([]string, 0, len(contributors))
	for id := range contributors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m, err := engine.CalculateCredibility(ctx, id, q.Methodology, nil)
		if err != nil {
			return Summary{}, err
		}
		s.Credibility = append(s.Credibility, SourceCredibility{SourceID: id, Metrics: m})
	}

	log.Info(ctx, "report built",
		logger.Int("observations", s.Observations),
		logger.Int("accepted", s.Accepted),
		logger.Int("undeclared", s.Undeclared),
		logger.Int("categories", len(s.Categories)),
	)
	return s, nil
}

func summarize(ctx context.Context, engine *service.Engine, category string, field aggregation.Field) (CategorySummary, error) {
	points, err := engine.Points(ctx, category)
	if err != nil {
		return CategorySummary{}, err
	}
	value, valueConf, err := engine.WeightedAverage(ctx, category, field)
	if err != nil {
		return CategorySummary{}, err
	}
	found, err := engine.DetectContradictions(ctx, category)
	if err != nil {
		return CategorySummary{}, err
	}

	cs := CategorySummary{
		Category:        category,
		Points:          len(points),
		Field:           field,
		WeightedValue:   value,
		ValueConfidence: valueConf,
		Confidence:      engine.MetricConfidence(ctx, category, points),
	}
	for _, c := range found {
		cs.Contradictions = append(cs.Contradictions, viewOf(c))
	}
	return cs, nil
}

func viewOf(c model.Contradiction) ContradictionView {
	v := ContradictionView{
		ValueA:               c.ValueA,
		ValueB:               c.ValueB,
		Severity:             c.Severity,
		ResolutionConfidence: c.ResolutionConfidence,
		Rationale:            c.Rationale,
	}
	if c.SourceA != nil {
		v.SourceA = c.SourceA.ID
	}
	if c.SourceB != nil {
		v.SourceB = c.SourceB.ID
	}
	if c.Preferred != nil {
		v.Preferred = c.Preferred.ID
	}
	return v
}
