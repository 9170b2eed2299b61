// Package config defines process configuration and how it is loaded.
//
// Conventions:
// - New(ctx) builds a Config holding every default.
// - Load(ctx) layers an optional YAML file and CREDENCE_ env vars on top.
// - Errors are wrapped with ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/credence/internal/domain/credibility"
	"github.com/okian/credence/internal/domain/ingest"
	"github.com/okian/credence/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operational HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submitted point ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MinCredibility and MinConfidence are the ingestion floors.
	MinCredibility float64 `koanf:"min_credibility"`
	MinConfidence  float64 `koanf:"min_confidence"`

	AuthorityTTL     time.Duration `koanf:"authority_ttl"`
	AuthorityIssuers []string      `koanf:"authority_issuers"`

	// FeedPath points at a YAML observation feed replayed by the fetch runner.
	FeedPath string `koanf:"feed_path"`

	// FetchInterval is how often the feed is replayed; zero runs it once.
	FetchInterval time.Duration `koanf:"fetch_interval"`

	// FetchConcurrency caps concurrent fetchers; zero means one per source.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// Sources extends the built-in catalog. Entries with a built-in id
	// overwrite it.
	Sources []SourceConfig `koanf:"sources"`
}

// SourceConfig is the file representation of a source.
type SourceConfig struct {
	ID           string          `koanf:"id"`
	Name         string          `koanf:"name"`
	Organization string          `koanf:"organization"`
	Tier         string          `koanf:"tier"`
	Segment      string          `koanf:"segment"`
	Credibility  float64         `koanf:"credibility"`
	Cost         float64         `koanf:"cost"`
	RateLimit    model.RateLimit `koanf:"rate_limit"`
	Active       *bool           `koanf:"active"`
	Categories   []string        `koanf:"categories"`
	Methodology  string          `koanf:"methodology"`
	LastUpdated  string          `koanf:"last_updated"`
}

// Source converts the entry to a domain source. Sources are active unless
// stated otherwise; an unparseable last_updated is treated as unknown.
func (s SourceConfig) Source() model.Source {
	src := model.Source{
		ID:               s.ID,
		Name:             s.Name,
		Organization:     s.Organization,
		Tier:             model.TrustTier(s.Tier),
		Segment:          model.Segment(s.Segment),
		CredibilityScore: s.Credibility,
		Cost:             s.Cost,
		RateLimit:        s.RateLimit,
		Active:           s.Active == nil || *s.Active,
		Categories:       s.Categories,
		Methodology:      s.Methodology,
	}
	if ts, ok := model.ParseTimestamp(s.LastUpdated); ok {
		src.LastUpdated = ts
	}
	return src
}

// CatalogSources converts every configured source.
func (c *Config) CatalogSources() []model.Source {
	out := make([]model.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Source())
	}
	return out
}

// New creates a Config holding the defaults. The context is reserved for
// loaders that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       50_000,
		MinCredibility:   ingest.DefaultMinCredibility,
		MinConfidence:    ingest.DefaultMinConfidence,
		AuthorityTTL:     credibility.DefaultAuthorityTTL,
		AuthorityIssuers: credibility.DefaultIssuers(),
		FetchInterval:    0,
	}
}
