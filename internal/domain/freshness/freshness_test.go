package freshness_test

import (
	"testing"
	"time"

	"github.com/okian/credence/internal/domain/freshness"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given ages across every tier", t, func() {
		day := 24 * time.Hour
		cases := []struct {
			age  time.Duration
			tier freshness.Tier
		}{
			{-time.Minute, freshness.RealTime},
			{0, freshness.RealTime},
			{59 * time.Minute, freshness.RealTime},
			{time.Hour, freshness.Daily},
			{23 * time.Hour, freshness.Daily},
			{day, freshness.Weekly},
			{7 * day, freshness.Monthly},
			{30 * day, freshness.Quarterly},
			{90 * day, freshness.Annual},
			{364 * day, freshness.Annual},
			{365 * day, freshness.Stale},
			{10 * 365 * day, freshness.Stale},
		}

		Convey("Then each resolves to the expected tier with strict boundaries", func() {
			for _, c := range cases {
				So(freshness.Classify(c.age), ShouldEqual, c.tier)
			}
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given every tier", t, func() {
		want := map[freshness.Tier]float64{
			freshness.RealTime:  1.00,
			freshness.Daily:     0.95,
			freshness.Weekly:    0.85,
			freshness.Monthly:   0.75,
			freshness.Quarterly: 0.60,
			freshness.Annual:    0.40,
			freshness.Stale:     0.10,
		}

		Convey("Then weights follow the decay table", func() {
			So(len(freshness.Tiers()), ShouldEqual, len(want))
			for _, tier := range freshness.Tiers() {
				So(tier.Weight(), ShouldEqual, want[tier])
			}
		})

		Convey("Then an unknown tier weighs like stale", func() {
			So(freshness.Tier("bogus").Weight(), ShouldEqual, 0.10)
		})
	})

	Convey("Given a timestamp two days old", t, func() {
		now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
		ts := now.Add(-48 * time.Hour)

		Convey("Then it is weekly with weight 0.85", func() {
			So(freshness.At(ts, now), ShouldEqual, freshness.Weekly)
			So(freshness.WeightAt(ts, now), ShouldEqual, 0.85)
		})
	})
}
