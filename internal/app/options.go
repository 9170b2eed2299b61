package service

import (
	"time"

	"github.com/okian/credence/internal/adapters/repository"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCatalog replaces the default source catalog registered at
// construction. An empty catalog starts with no sources.
func WithCatalog(sources []model.Source) Option {
	return func(e *Engine) {
		e.catalog = append([]model.Source(nil), sources...)
		e.catalogSet = true
	}
}

// WithExtraSources registers sources after the catalog.
func WithExtraSources(sources []model.Source) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, sources...)
	}
}

// WithStore sets the evidence store.
func WithStore(store repository.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithWorkerCount sets the number of workers draining submissions.
func WithWorkerCount(count int) Option {
	return func(e *Engine) {
		if count > 0 {
			e.workerCount = count
		}
	}
}

// WithQueueSize sets the submission queue capacity.
func WithQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submitted ids are remembered.
func WithDedupeSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.dedupeSize = size
		}
	}
}

// WithMinCredibility sets the ingestion credibility floor.
func WithMinCredibility(v float64) Option {
	return func(e *Engine) {
		e.minCredibility = v
	}
}

// WithMinConfidence sets the ingestion confidence floor.
func WithMinConfidence(v float64) Option {
	return func(e *Engine) {
		e.minConfidence = v
	}
}

// WithAuthorityTTL sets how long authority verdicts are cached.
func WithAuthorityTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.authorityTTL = ttl
		}
	}
}

// WithAuthorityIssuers replaces the authoritative issuer list.
func WithAuthorityIssuers(issuers []string) Option {
	return func(e *Engine) {
		if len(issuers) > 0 {
			e.issuers = issuers
		}
	}
}

// WithClock replaces time.Now across every component.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
