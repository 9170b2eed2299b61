package ingest

import (
	"time"

	"github.com/okian/credence/pkg/logger"
)

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithMinCredibility sets the source credibility floor.
func WithMinCredibility(v float64) Option {
	return func(val *Validator) {
		if v >= 0 && v <= 100 {
			val.minCredibility = v
		}
	}
}

// WithMinConfidence sets the observation confidence floor.
func WithMinConfidence(v float64) Option {
	return func(val *Validator) {
		if v >= 0 && v <= 1 {
			val.minConfidence = v
		}
	}
}

// WithClock replaces time.Now for freshness classification.
func WithClock(now func() time.Time) Option {
	return func(val *Validator) {
		if now != nil {
			val.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(val *Validator) {
		if l != nil {
			val.logger = l
		}
	}
}
