// Package registry holds the catalog of registered sources.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

// Lookuper resolves a source id to its record.
type Lookuper interface {
	Lookup(ctx context.Context, id string) (*model.Source, error)
}

// Registry is the single source of truth for Source records.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*model.Source
	logger  logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sources: make(map[string]*model.Source),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("registry")
	}
	return r
}

// Validate checks the invariants a source must satisfy to be registered.
func Validate(src model.Source) error {
	switch {
	case strings.TrimSpace(src.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSource)
	case !src.Tier.Valid():
		return fmt.Errorf("%w: %s: unknown trust tier %q", ErrInvalidSource, src.ID, src.Tier)
	case src.Segment != "" && !src.Segment.Valid():
		return fmt.Errorf("%w: %s: unknown segment %q", ErrInvalidSource, src.ID, src.Segment)
	case src.CredibilityScore < 0 || src.CredibilityScore > 100:
		return fmt.Errorf("%w: %s: credibility %.2f outside [0,100]", ErrInvalidSource, src.ID, src.CredibilityScore)
	}
	return nil
}

// Register stores a copy of src. Registering an existing id overwrites it;
// points already stored keep the record they were validated against.
func (r *Registry) Register(ctx context.Context, src model.Source) (*model.Source, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}
	if src.Segment == "" {
		src.Segment = model.SegmentForTier(src.Tier)
	}
	src.Categories = append([]string(nil), src.Categories...)
	stored := &src

	r.mu.Lock()
	_, existed := r.sources[src.ID]
	r.sources[src.ID] = stored
	n := len(r.sources)
	r.mu.Unlock()

	if existed {
		r.logger.Warn(ctx, "source re-registered; previous record overwritten", logger.String("source_id", src.ID))
	} else {
		r.logger.Debug(ctx, "source registered",
			logger.String("source_id", src.ID),
			logger.String("tier", string(src.Tier)),
			logger.Float64("credibility", src.CredibilityScore),
		)
	}
	metrics.UpdateSourcesTotal(n)
	return stored, nil
}

// Lookup returns the source registered under id.
func (r *Registry) Lookup(_ context.Context, id string) (*model.Source, error) {
	r.mu.RLock()
	src, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return src, nil
}

// List returns every registered source ordered by id.
func (r *Registry) List(_ context.Context) []*model.Source {
	r.mu.RLock()
	out := make([]*model.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
