package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector is registered", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithMetricsEnabled(false),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.enabled, ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 1})
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "credence")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingestion outcomes", func() {
			before := testutil.ToFloat64(globalManager.pointsIngested)
			rejectedBefore := testutil.ToFloat64(globalManager.pointsRejected.WithLabelValues("stale"))
			RecordPointIngested()
			RecordPointRejected("stale")

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.pointsIngested), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.pointsRejected.WithLabelValues("stale")), ShouldEqual, rejectedBefore+1)
			})
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)
			before := testutil.ToFloat64(globalManager.contradictionsDetected)
			RecordContradiction(true)

			Convey("Then counters stay put", func() {
				So(testutil.ToFloat64(globalManager.contradictionsDetected), ShouldEqual, before)
			})
		})

		Convey("When updating gauges", func() {
			UpdateStorePoints(42)
			UpdateSourcesTotal(7)
			UpdateQueueSize(3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.storePoints), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.sourcesTotal), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
			})
		})

		Convey("When recording remaining helpers", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordPointDuplicate()
					RecordUnknownSource()
					RecordAuthorityCache(true)
					RecordAuthorityCache(false)
					ObserveCalculation("weighted_average", time.Now())
					UpdateQueueCapacity(10)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError("full")
					UpdateWorkerActiveCount(2)
					RecordWorkerError()
					RecordFetchObservations("gov_x", 3)
					RecordFetchError("gov_x")
					ObserveThrottleWait(5 * time.Millisecond)
					RecordHTTPRequest("stats", "GET", "200")
					RecordHTTPRequestDuration("stats", "GET", "200", 1.5)
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(8)
				}, ShouldNotPanic)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalRefreshInterval(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then its refresh interval is the default", func() {
			So(GetRefreshInterval(), ShouldEqual, defaultRefreshInterval)
			So(GetRefreshInterval(), ShouldEqual, globalManager.RefreshInterval())
		})
	})
}
