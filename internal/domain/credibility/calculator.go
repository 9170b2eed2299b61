// Package credibility turns a source and the methodology declared for a piece
// of evidence into a credibility score with a confidence interval.
//
// The score is table driven:
//
//	final = min(100, base × methodology × recency × sample + bonuses)
//
// where base is the source credibility, methodology is the strongest declared
// attribute weight (+0.1 per extra attribute, capped at 2.0), recency scores
// the source's last update, sample scores the declared sample size and the
// bonuses reward peer review (+10) and government sourcing (+15).
package credibility

import (
	"context"
	"time"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

const (
	peerReviewBonus = 10.0
	governmentBonus = 15.0
	maxScore        = 100.0
)

// Calculator computes CredibilityMetrics. It holds no per-call state; the
// only shared state is the verifier cache.
type Calculator struct {
	verifier *AuthorityVerifier
	now      func() time.Time
	logger   logger.Logger
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithVerifier sets the authority verifier.
func WithVerifier(v *AuthorityVerifier) Option {
	return func(c *Calculator) {
		if v != nil {
			c.verifier = v
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCalculator creates a calculator. Without WithVerifier it builds a
// verifier sharing the calculator clock.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("credibility")
	}
	if c.verifier == nil {
		c.verifier = NewAuthorityVerifier(WithVerifierClock(c.now), WithVerifierLogger(c.logger))
	}
	return c
}

// Calculate scores src under the declared methodology. sampleSize is nil
// when unknown.
func (c *Calculator) Calculate(ctx context.Context, src *model.Source, methods model.MethodologySet, sampleSize *int) model.CredibilityMetrics {
	defer metrics.ObserveCalculation("credibility", time.Now())

	m := model.CredibilityMetrics{
		SourceID:              src.ID,
		BaseScore:             src.CredibilityScore,
		MethodologyMultiplier: MethodologyMultiplier(methods),
		RecencyFactor:         RecencyFactor(src.LastUpdated, c.now()),
		SampleSizeFactor:      SampleSizeFactor(sampleSize),
	}
	if methods.Has(model.PeerReviewed) {
		m.PeerReviewBonus = peerReviewBonus
	}
	if methods.Has(model.GovernmentSourced) {
		m.GovernmentBonus = governmentBonus
	}

	raw := m.BaseScore*m.MethodologyMultiplier*m.RecencyFactor*m.SampleSizeFactor + m.PeerReviewBonus + m.GovernmentBonus
	m.FinalScore = clamp(raw, 0, maxScore)

	margin := ConfidenceMargin(methods, sampleSize)
	m.ConfidenceInterval = model.Interval{
		Lower: clamp(m.FinalScore-margin, 0, maxScore),
		Upper: clamp(m.FinalScore+margin, 0, maxScore),
	}
	m.AuthorityVerified = c.verifier.Verify(ctx, src)

	c.logger.Debug(ctx, "credibility calculated",
		logger.String("source_id", src.ID),
		logger.Float64("raw", raw),
		logger.Float64("final", m.FinalScore),
		logger.Float64("margin", margin),
	)
	return m
}

// Verifier exposes the authority verifier backing the calculator.
func (c *Calculator) Verifier() *AuthorityVerifier {
	return c.verifier
}
