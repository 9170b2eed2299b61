package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func point(content, category string, src *model.Source) *model.KnowledgePoint {
	return model.NewKnowledgePoint(model.Observation{
		Content:    content,
		SourceID:   src.ID,
		Category:   category,
		Value:      model.Float(1),
		Confidence: 0.9,
		Timestamp:  time.Now(),
	}, src)
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(WithCapacity(8))
		src := &model.Source{ID: "census", Tier: model.TierGovernment, CredibilityScore: 98}

		So(store.Len(ctx), ShouldEqual, 0)

		Convey("When a point is put", func() {
			p := point("rate is 10%", "startup_rates", src)
			stored, inserted, err := store.Put(ctx, p)

			Convey("Then it is inserted and retrievable", func() {
				So(err, ShouldBeNil)
				So(inserted, ShouldBeTrue)
				So(stored, ShouldEqual, p)
				got, err := store.Get(ctx, p.ID)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, p)
				So(store.Len(ctx), ShouldEqual, 1)
			})

			Convey("And the same id is put again", func() {
				dup := point("rate is 10%", "startup_rates", src)
				dup.Confidence = 0.1
				stored, inserted, err := store.Put(ctx, dup)

				Convey("Then the first point is kept unmodified", func() {
					So(err, ShouldBeNil)
					So(inserted, ShouldBeFalse)
					So(stored, ShouldEqual, p)
					So(stored.Confidence, ShouldEqual, 0.9)
					So(store.Len(ctx), ShouldEqual, 1)
					points, _ := store.ByCategory(ctx, "startup_rates")
					So(points, ShouldHaveLength, 1)
				})
			})
		})

		Convey("When points span several categories", func() {
			for i := 0; i < 3; i++ {
				_, _, err := store.Put(ctx, point(fmt.Sprintf("a%d", i), "alpha", src))
				So(err, ShouldBeNil)
			}
			_, _, err := store.Put(ctx, point("b", "beta", src))
			So(err, ShouldBeNil)

			Convey("Then ByCategory preserves insertion order", func() {
				points, err := store.ByCategory(ctx, "alpha")
				So(err, ShouldBeNil)
				So(points, ShouldHaveLength, 3)
				So(points[0].Content, ShouldEqual, "a0")
				So(points[2].Content, ShouldEqual, "a2")
			})

			Convey("Then unknown categories are empty", func() {
				points, err := store.ByCategory(ctx, "gamma")
				So(err, ShouldBeNil)
				So(points, ShouldBeEmpty)
			})

			Convey("Then categories and totals are reported", func() {
				So(store.Categories(ctx), ShouldResemble, []string{"alpha", "beta"})
				all, err := store.All(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 4)
			})

			Convey("Then returned slices are copies", func() {
				points, _ := store.ByCategory(ctx, "alpha")
				points[0] = nil
				again, _ := store.ByCategory(ctx, "alpha")
				So(again[0], ShouldNotBeNil)
			})
		})

		Convey("When an unknown id is requested", func() {
			_, err := store.Get(ctx, "missing")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an invalid point is put", func() {
			_, _, errNil := store.Put(ctx, nil)
			_, _, errNoSource := store.Put(ctx, &model.KnowledgePoint{ID: "x"})

			Convey("Then ErrInvalidPoint is returned", func() {
				So(errors.Is(errNil, ErrInvalidPoint), ShouldBeTrue)
				So(errors.Is(errNoSource, ErrInvalidPoint), ShouldBeTrue)
			})
		})

		Convey("When many goroutines put the same and distinct points", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					_, _, _ = store.Put(ctx, point(fmt.Sprintf("p%d", i), "c", src))
				}(i)
				go func() {
					defer wg.Done()
					_, _, _ = store.Put(ctx, point("shared", "c", src))
				}()
			}
			wg.Wait()

			Convey("Then both indexes agree", func() {
				So(store.Len(ctx), ShouldEqual, 51)
				points, _ := store.ByCategory(ctx, "c")
				So(points, ShouldHaveLength, 51)
			})
		})
	})
}
