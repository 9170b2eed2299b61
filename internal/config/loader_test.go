package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/credence/internal/config"
	"github.com/okian/credence/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"CREDENCE_CONFIG",
	"CREDENCE_ADDR",
	"CREDENCE_LOG_LEVEL",
	"CREDENCE_QUEUE_SIZE",
	"CREDENCE_WORKER_COUNT",
	"CREDENCE_DEDUPE_SIZE",
	"CREDENCE_MIN_CREDIBILITY",
	"CREDENCE_MIN_CONFIDENCE",
	"CREDENCE_AUTHORITY_TTL",
	"CREDENCE_AUTHORITY_ISSUERS",
	"CREDENCE_FEED_PATH",
	"CREDENCE_FETCH_INTERVAL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

const configYAML = `
addr: ":7070"
log_level: debug
queue_size: 500
min_credibility: 60
authority_ttl: 12h
feed_path: /var/lib/credence/feed.yaml
fetch_interval: 15m
sources:
  - id: state_sos
    name: State business filings
    organization: Delaware Division of Corporations
    tier: government
    credibility: 92
    rate_limit:
      requests: 60
      per: 1m
    categories: [business_formation]
    last_updated: "2026-09-01"
  - id: newsletter
    organization: Weekly Founder Notes
    tier: community
    credibility: 55
    active: false
    last_updated: sometime
`

func TestConfigNew(t *testing.T) {
	convey.Convey("Given default configuration", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then the defaults are valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MinCredibility, convey.ShouldEqual, 70)
			convey.So(cfg.MinConfidence, convey.ShouldEqual, 0.6)
			convey.So(cfg.AuthorityTTL, convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.AuthorityIssuers, convey.ShouldNotBeEmpty)
			convey.So(cfg.Sources, convey.ShouldBeEmpty)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("CREDENCE_ADDR", ":8080")
			_ = os.Setenv("CREDENCE_WORKER_COUNT", "16")
			_ = os.Setenv("CREDENCE_MIN_CONFIDENCE", "0.75")
			_ = os.Setenv("CREDENCE_AUTHORITY_TTL", "90m")
			_ = os.Setenv("CREDENCE_AUTHORITY_ISSUERS", "Acme Research, Eurostat ,")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.MinConfidence, convey.ShouldEqual, 0.75)
				convey.So(cfg.AuthorityTTL, convey.ShouldEqual, 90*time.Minute)
				convey.So(cfg.AuthorityIssuers, convey.ShouldResemble, []string{"Acme Research", "Eurostat"})
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "credence.yaml")
			convey.So(os.WriteFile(path, []byte(configYAML), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("CREDENCE_CONFIG", path)
			_ = os.Setenv("CREDENCE_QUEUE_SIZE", "900")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 900)
				convey.So(cfg.MinCredibility, convey.ShouldEqual, 60)
				convey.So(cfg.AuthorityTTL, convey.ShouldEqual, 12*time.Hour)
				convey.So(cfg.FetchInterval, convey.ShouldEqual, 15*time.Minute)
				convey.So(cfg.FeedPath, convey.ShouldEqual, "/var/lib/credence/feed.yaml")
			})

			convey.Convey("Then the catalog extension is decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				sources := cfg.CatalogSources()
				convey.So(sources, convey.ShouldHaveLength, 2)

				sos := sources[0]
				convey.So(sos.ID, convey.ShouldEqual, "state_sos")
				convey.So(sos.Tier, convey.ShouldEqual, model.TierGovernment)
				convey.So(sos.CredibilityScore, convey.ShouldEqual, 92)
				convey.So(sos.RateLimit, convey.ShouldResemble, model.RateLimit{Requests: 60, Per: time.Minute})
				convey.So(sos.Active, convey.ShouldBeTrue)
				convey.So(sos.Categories, convey.ShouldResemble, []string{"business_formation"})
				convey.So(sos.LastUpdated.IsZero(), convey.ShouldBeFalse)

				news := sources[1]
				convey.So(news.Active, convey.ShouldBeFalse)
				convey.So(news.LastUpdated.IsZero(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("CREDENCE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then ErrLoadConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is out of range", func() {
			_ = os.Setenv("CREDENCE_MIN_CONFIDENCE", "1.5")

			_, err := config.Load(ctx)

			convey.Convey("Then ErrInvalidConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		ctx := context.Background()
		mutations := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"bad log level":     func(c *config.Config) { c.LogLevel = "loud" },
			"zero queue":        func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":      func(c *config.Config) { c.WorkerCount = 0 },
			"negative dedupe":   func(c *config.Config) { c.DedupeSize = -1 },
			"credibility > 100": func(c *config.Config) { c.MinCredibility = 101 },
			"zero ttl":          func(c *config.Config) { c.AuthorityTTL = 0 },
			"negative interval": func(c *config.Config) { c.FetchInterval = -time.Second },
			"source without id": func(c *config.Config) { c.Sources = []config.SourceConfig{{Name: "x"}} },
		}

		convey.Convey("Then each is rejected with ErrInvalidConfig", func() {
			for name, mutate := range mutations {
				cfg := config.New(ctx)
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldNotEqual, name)
			}
		})
	})
}
