package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/credence/internal/domain/model"
)

// feedDocument is the on-disk layout of an observation feed.
type feedDocument struct {
	Observations []feedEntry `yaml:"observations"`
}

type feedEntry struct {
	Source     string   `yaml:"source"`
	Category   string   `yaml:"category"`
	Content    string   `yaml:"content"`
	Value      *float64 `yaml:"value"`
	Confidence float64  `yaml:"confidence"`
	Timestamp  string   `yaml:"timestamp"`
}

// ParseFeed decodes a YAML feed. Entries need a source, a category and
// content; a missing timestamp means observed at ingestion time.
func ParseFeed(r io.Reader) ([]model.Observation, error) {
	var doc feedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrFeed, err)
	}

	out := make([]model.Observation, 0, len(doc.Observations))
	for i, e := range doc.Observations {
		if e.Source == "" || e.Category == "" || e.Content == "" {
			return nil, fmt.Errorf("%w: entry %d: source, category and content are required", ErrFeed, i)
		}
		obs := model.Observation{
			Content:    e.Content,
			SourceID:   e.Source,
			Category:   e.Category,
			Value:      e.Value,
			Confidence: e.Confidence,
		}
		if e.Timestamp != "" {
			ts, ok := model.ParseTimestamp(e.Timestamp)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d: unparseable timestamp %q", ErrFeed, i, e.Timestamp)
			}
			obs.Timestamp = ts
		}
		out = append(out, obs)
	}
	return out, nil
}

// LoadFeed reads and parses the feed at path.
func LoadFeed(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()
	return ParseFeed(f)
}

// StaticFetcher returns a fixed batch of observations for one source.
type StaticFetcher struct {
	source       string
	observations []model.Observation
}

// NewStaticFetcher creates a fetcher replaying observations.
func NewStaticFetcher(source string, observations []model.Observation) *StaticFetcher {
	return &StaticFetcher{source: source, observations: observations}
}

// SourceID implements Fetcher.
func (f *StaticFetcher) SourceID() string { return f.source }

// Fetch implements Fetcher.
func (f *StaticFetcher) Fetch(ctx context.Context) ([]model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Observation(nil), f.observations...), nil
}

// FeedFetchers groups feed observations by source, one fetcher each,
// ordered by source id.
func FeedFetchers(observations []model.Observation) []Fetcher {
	bySource := make(map[string][]model.Observation)
	for _, o := range observations {
		bySource[o.SourceID] = append(bySource[o.SourceID], o)
	}
	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Fetcher, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewStaticFetcher(id, bySource[id]))
	}
	return out
}
