package report

import (
	"fmt"

	"github.com/okian/credence/internal/domain/aggregation"
	"github.com/okian/credence/internal/domain/ingest"
	"github.com/okian/credence/internal/domain/model"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the inputs of a report run.
type Config struct {
	FeedPath       string
	Format         string
	MinCredibility float64
	MinConfidence  float64
	// Sources extends the built-in catalog.
	Sources []model.Source
	Query
}

// Query selects what a summary reports.
type Query struct {
	// Categories to summarize; empty means every stored category.
	Categories []string
	// Field is averaged per category.
	Field aggregation.Field
	// Methodology is declared when scoring the credibility of each
	// contributing source.
	Methodology model.MethodologySet
}

// DefaultConfig returns a text report using the default ingestion floors.
func DefaultConfig() Config {
	return Config{
		Format:         FormatText,
		Query:          Query{Field: aggregation.FieldValue},
		MinCredibility: ingest.DefaultMinCredibility,
		MinConfidence:  ingest.DefaultMinConfidence,
	}
}

// Validate checks the config before a run.
func (c Config) Validate() error {
	switch {
	case c.FeedPath == "":
		return fmt.Errorf("%w: feed path is required", ErrConfig)
	case c.Format != FormatText && c.Format != FormatJSON:
		return fmt.Errorf("%w: %q", ErrFormat, c.Format)
	case c.Field != aggregation.FieldValue && c.Field != aggregation.FieldConfidence:
		return fmt.Errorf("%w: unknown field %q", ErrConfig, c.Field)
	case c.MinCredibility < 0 || c.MinCredibility > 100:
		return fmt.Errorf("%w: min credibility %.2f outside [0,100]", ErrConfig, c.MinCredibility)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min confidence %.2f outside [0,1]", ErrConfig, c.MinConfidence)
	}
	return nil
}
