package ttlcache_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/credence/pkg/ttlcache"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache(t *testing.T) {
	Convey("Given a cache with a 24h TTL and a fake clock", t, func() {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := ttlcache.New[string, bool](24*time.Hour, ttlcache.WithClock[string, bool](clock.Now))

		Convey("When a value is set", func() {
			c.Set("gov_x", true)

			Convey("Then it is returned before expiry", func() {
				clock.Advance(24*time.Hour - time.Nanosecond)
				v, ok := c.Get("gov_x")
				So(ok, ShouldBeTrue)
				So(v, ShouldBeTrue)
			})

			Convey("Then it expires exactly TTL after it was produced", func() {
				clock.Advance(24 * time.Hour)
				_, ok := c.Get("gov_x")
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When GetOrCompute is used", func() {
			calls := 0
			compute := func() bool { calls++; return true }

			v, hit := c.GetOrCompute("gov_x", compute)
			So(v, ShouldBeTrue)
			So(hit, ShouldBeFalse)

			Convey("Then a second call reuses the cached value", func() {
				_, hit := c.GetOrCompute("gov_x", compute)
				So(hit, ShouldBeTrue)
				So(calls, ShouldEqual, 1)
			})

			Convey("Then an expired entry is recomputed lazily", func() {
				clock.Advance(25 * time.Hour)
				_, hit := c.GetOrCompute("gov_x", compute)
				So(hit, ShouldBeFalse)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When a key is deleted", func() {
			c.Set("a", true)
			c.Delete("a")

			Convey("Then it is gone", func() {
				_, ok := c.Get("a")
				So(ok, ShouldBeFalse)
				So(c.TTL(), ShouldEqual, 24*time.Hour)
			})
		})
	})
}

func TestCacheConcurrency(t *testing.T) {
	Convey("Given many goroutines computing the same key", t, func() {
		c := ttlcache.New[string, int](time.Hour)
		var computed atomic.Int64
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.GetOrCompute("k", func() int { computed.Add(1); return 7 })
			}()
		}
		wg.Wait()

		Convey("Then every caller agrees on the value", func() {
			v, ok := c.Get("k")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 7)
			So(computed.Load(), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}
