// Package ingest gates observations before they reach the evidence store.
package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/credence/internal/adapters/repository"
	"github.com/okian/credence/internal/domain/freshness"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/internal/domain/registry"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

const (
	DefaultMinCredibility = 70.0
	DefaultMinConfidence  = 0.6
)

// Reason explains why an observation was not stored.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonLowCredibility    Reason = "low_credibility"
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonInvalidConfidence Reason = "invalid_confidence"
	ReasonStale             Reason = "stale"
)

// Outcome is the result of validating one observation. A rejected
// observation is not an error; callers decide whether to log or drop it.
type Outcome struct {
	PointID   string `json:"point_id"`
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
}

// Validator checks observations against the credibility, confidence and
// freshness floors and stores the ones that pass.
type Validator struct {
	sources registry.Lookuper
	store   repository.Store

	minCredibility float64
	minConfidence  float64
	now            func() time.Time
	logger         logger.Logger
}

// NewValidator creates a validator with floors 70 and 0.6.
func NewValidator(sources registry.Lookuper, store repository.Store, opts ...Option) *Validator {
	v := &Validator{
		sources:        sources,
		store:          store,
		minCredibility: DefaultMinCredibility,
		minConfidence:  DefaultMinConfidence,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logger.Get().Named("ingest")
	}
	return v
}

// Ingest validates obs and stores it when it passes. A zero timestamp means
// observed now. Errors are returned
// only for unknown sources, malformed observations and store failures.
func (v *Validator) Ingest(ctx context.Context, obs model.Observation) (Outcome, error) {
	defer metrics.ObserveCalculation("ingest", time.Now())

	if strings.TrimSpace(obs.SourceID) == "" || strings.TrimSpace(obs.Category) == "" {
		return Outcome{}, fmt.Errorf("%w: source id and category are required", ErrInvalidObservation)
	}

	src, err := v.sources.Lookup(ctx, obs.SourceID)
	if err != nil {
		metrics.RecordUnknownSource()
		v.logger.Warn(ctx, "observation references unknown source", logger.String("source_id", obs.SourceID))
		return Outcome{}, fmt.Errorf("ingest: %w", err)
	}

	if obs.Timestamp.IsZero() {
		obs.Timestamp = v.now()
	}
	out := Outcome{PointID: obs.ID()}
	if reason := v.check(src, obs); reason != ReasonNone {
		out.Reason = reason
		metrics.RecordPointRejected(string(reason))
		v.logger.Debug(ctx, "observation rejected",
			logger.String("point_id", out.PointID),
			logger.String("source_id", src.ID),
			logger.String("reason", string(reason)),
		)
		return out, nil
	}

	_, inserted, err := v.store.Put(ctx, model.NewKnowledgePoint(obs, src))
	if err != nil {
		return Outcome{}, fmt.Errorf("store point %s: %w", out.PointID, err)
	}
	out.Accepted = true
	out.Duplicate = !inserted
	if inserted {
		metrics.RecordPointIngested()
	} else {
		metrics.RecordPointDuplicate()
	}
	return out, nil
}

func (v *Validator) check(src *model.Source, obs model.Observation) Reason {
	switch {
	case math.IsNaN(obs.Confidence) || obs.Confidence < 0 || obs.Confidence > 1:
		return ReasonInvalidConfidence
	case src.CredibilityScore < v.minCredibility:
		return ReasonLowCredibility
	case obs.Confidence < v.minConfidence:
		return ReasonLowConfidence
	case freshness.At(obs.Timestamp, v.now()) == freshness.Stale:
		return ReasonStale
	}
	return ReasonNone
}
