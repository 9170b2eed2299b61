package ingest_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/credence/internal/adapters/repository"
	"github.com/okian/credence/internal/domain/ingest"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/internal/domain/registry"
	"github.com/okian/credence/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func setup() (*registry.Registry, *repository.MemoryStore, *ingest.Validator) {
	ctx := context.Background()
	reg := registry.New()
	for _, src := range []model.Source{
		{ID: "census", Organization: "U.S. Census Bureau", Tier: model.TierGovernment, CredibilityScore: 98},
		{ID: "forum", Organization: "Hacker News", Tier: model.TierCommunity, CredibilityScore: 65},
		{ID: "edge", Organization: "Edge Analytics", Tier: model.TierIndustry, CredibilityScore: 70},
	} {
		if _, err := reg.Register(ctx, src); err != nil {
			panic(err)
		}
	}
	store := repository.NewMemoryStore()
	v := ingest.NewValidator(reg, store, ingest.WithClock(func() time.Time { return now }))
	return reg, store, v
}

func observation(sourceID string, confidence float64, age time.Duration) model.Observation {
	return model.Observation{
		Content:    "new business applications rose 4%",
		SourceID:   sourceID,
		Category:   "startup_rates",
		Value:      model.Float(4),
		Confidence: confidence,
		Timestamp:  now.Add(-age),
	}
}

func TestValidator(t *testing.T) {
	Convey("Given a validator over a registry and a store", t, func() {
		ctx := context.Background()
		_, store, v := setup()

		Convey("When a valid observation is ingested", func() {
			obs := observation("census", 0.9, time.Hour)
			out, err := v.Ingest(ctx, obs)

			Convey("Then it is accepted and stored under its deterministic id", func() {
				So(err, ShouldBeNil)
				So(out.Accepted, ShouldBeTrue)
				So(out.Duplicate, ShouldBeFalse)
				So(out.PointID, ShouldEqual, obs.ID())
				p, err := store.Get(ctx, out.PointID)
				So(err, ShouldBeNil)
				So(p.Source.ID, ShouldEqual, "census")
			})

			Convey("And the identical tuple is ingested again", func() {
				again := obs
				again.Confidence = 0.7
				again.Value = model.Float(99)
				out2, err := v.Ingest(ctx, again)

				Convey("Then the same id is returned and the first point is kept", func() {
					So(err, ShouldBeNil)
					So(out2.PointID, ShouldEqual, out.PointID)
					So(out2.Accepted, ShouldBeTrue)
					So(out2.Duplicate, ShouldBeTrue)
					So(store.Len(ctx), ShouldEqual, 1)
					p, _ := store.Get(ctx, out.PointID)
					So(p.Confidence, ShouldEqual, 0.9)
					So(*p.Value, ShouldEqual, 4)
				})
			})
		})

		Convey("When the source is unknown", func() {
			_, err := v.Ingest(ctx, observation("ghost", 0.9, time.Hour))

			Convey("Then ErrUnknownSource is surfaced", func() {
				So(errors.Is(err, registry.ErrUnknownSource), ShouldBeTrue)
				So(store.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the source id or category is missing", func() {
			obs := observation("census", 0.9, time.Hour)
			obs.Category = " "
			_, err := v.Ingest(ctx, obs)

			Convey("Then ErrInvalidObservation is returned", func() {
				So(errors.Is(err, ingest.ErrInvalidObservation), ShouldBeTrue)
			})
		})

		Convey("When observations fail a floor", func() {
			cases := []struct {
				obs    model.Observation
				reason ingest.Reason
			}{
				{observation("forum", 0.9, time.Hour), ingest.ReasonLowCredibility},
				{observation("census", 0.59, time.Hour), ingest.ReasonLowConfidence},
				{observation("census", 1.2, time.Hour), ingest.ReasonInvalidConfidence},
				{observation("census", -0.1, time.Hour), ingest.ReasonInvalidConfidence},
				{observation("census", math.NaN(), time.Hour), ingest.ReasonInvalidConfidence},
				{observation("census", 0.9, 365*24*time.Hour), ingest.ReasonStale},
			}

			Convey("Then each is rejected with its reason and nothing is stored", func() {
				for _, c := range cases {
					out, err := v.Ingest(ctx, c.obs)
					So(err, ShouldBeNil)
					So(out.Accepted, ShouldBeFalse)
					So(out.Reason, ShouldEqual, c.reason)
					So(out.PointID, ShouldEqual, c.obs.ID())
				}
				So(store.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When observations sit exactly on the floors", func() {
			out, err := v.Ingest(ctx, observation("edge", 0.6, 364*24*time.Hour))

			Convey("Then they are accepted", func() {
				So(err, ShouldBeNil)
				So(out.Accepted, ShouldBeTrue)
			})
		})

		Convey("When the timestamp is missing", func() {
			obs := observation("census", 0.9, 0)
			obs.Timestamp = time.Time{}
			out, err := v.Ingest(ctx, obs)

			Convey("Then the observation is treated as fresh", func() {
				So(err, ShouldBeNil)
				So(out.Accepted, ShouldBeTrue)
				p, _ := store.Get(ctx, out.PointID)
				So(p.Timestamp, ShouldEqual, now)
			})
		})

		Convey("When the timestamp is in the future", func() {
			out, err := v.Ingest(ctx, observation("census", 0.9, -time.Hour))

			Convey("Then it is accepted as real-time", func() {
				So(err, ShouldBeNil)
				So(out.Accepted, ShouldBeTrue)
			})
		})
	})

	Convey("Given custom floors", t, func() {
		ctx := context.Background()
		reg, store, _ := setup()
		v := ingest.NewValidator(reg, store,
			ingest.WithClock(func() time.Time { return now }),
			ingest.WithMinCredibility(60),
			ingest.WithMinConfidence(0.95),
		)

		Convey("Then the configured thresholds apply", func() {
			out, err := v.Ingest(ctx, observation("forum", 0.96, time.Hour))
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)

			out, err = v.Ingest(ctx, observation("census", 0.9, time.Hour))
			So(err, ShouldBeNil)
			So(out.Reason, ShouldEqual, ingest.ReasonLowConfidence)
		})
	})
}
