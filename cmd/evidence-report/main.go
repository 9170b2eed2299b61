// Command evidence-report ingests a YAML observation feed and prints, per
// category, the weighted value, the contradictions found between sources
// and the resulting confidence.
//
// Usage:
//
//	evidence-report -feed observations.yaml [-format text|json] [-category a,b]
//	    [-field value|confidence] [-methodology peer_reviewed,longitudinal]
//
// Sources beyond the built-in catalog are read from the file named by
// CREDENCE_CONFIG, the same way the server loads them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/credence/internal/config"
	"github.com/okian/credence/internal/domain/aggregation"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/internal/report"
	"github.com/okian/credence/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defaults := report.DefaultConfig()

	fs := flag.NewFlagSet("evidence-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		feed           = fs.String("feed", "", "YAML observation feed to ingest (required)")
		format         = fs.String("format", defaults.Format, "output format: text or json")
		categories     = fs.String("category", "", "comma separated categories to report (default: all ingested)")
		field          = fs.String("field", string(defaults.Field), "field to average per category: value or confidence")
		methodology    = fs.String("methodology", "", "comma separated methodology tags declared when scoring each source")
		minCredibility = fs.Float64("min-credibility", defaults.MinCredibility, "minimum source credibility to accept an observation")
		minConfidence  = fs.Float64("min-confidence", defaults.MinConfidence, "minimum observation confidence to accept it")
		verbose        = fs.Bool("verbose", false, "log ingestion details to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	avg, ok := aggregation.ParseField(*field)
	if !ok {
		fmt.Fprintf(stderr, "unknown field %q\n", *field)
		fs.Usage()
		return 2
	}
	methods, err := parseMethodologies(*methodology)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return 1
	}
	_ = logger.SetLevelString(level)

	loaded, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	cfg := report.Config{
		FeedPath:       *feed,
		Format:         *format,
		MinCredibility: *minCredibility,
		MinConfidence:  *minConfidence,
		Sources:        loaded.CatalogSources(),
		Query: report.Query{
			Categories:  splitList(*categories),
			Field:       avg,
			Methodology: methods,
		},
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return 2
	}

	summary, err := report.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "report failed: %v\n", err)
		return 1
	}
	if err := report.Write(stdout, summary, cfg.Format); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 1
	}
	return 0
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMethodologies(raw string) (model.MethodologySet, error) {
	tags := make([]model.Methodology, 0)
	for _, p := range splitList(raw) {
		m, ok := model.ParseMethodology(p)
		if !ok {
			return nil, fmt.Errorf("unknown methodology %q", p)
		}
		tags = append(tags, m)
	}
	return model.NewMethodologySet(tags...), nil
}
