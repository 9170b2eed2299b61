package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/credence/internal/adapters/http/api"
	service "github.com/okian/credence/internal/app"
	"github.com/okian/credence/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats service.Stats
}

func (m *mockStatsProvider) Stats(context.Context) service.Stats {
	return m.stats
}

func newMux(stats service.Stats) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(&mockStatsProvider{stats: stats}).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	Convey("Given the operational routes", t, func() {
		Convey("When the engine is running", func() {
			w := serve(newMux(service.Stats{Started: true}), http.MethodGet, "/healthz")

			Convey("Then /healthz reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When the engine has not started", func() {
			w := serve(newMux(service.Stats{}), http.MethodGet, "/healthz")

			Convey("Then /healthz reports unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "not_started")
			})
		})

		Convey("When a non-GET method is used", func() {
			w := serve(newMux(service.Stats{Started: true}), http.MethodPost, "/healthz")

			Convey("Then 405 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a running engine with points", t, func() {
		mux := newMux(service.Stats{
			Started:       true,
			Points:        3,
			Sources:       9,
			Categories:    []string{"market_size"},
			QueueCapacity: 100,
			Workers:       4,
		})

		Convey("When GET /stats is requested", func() {
			w := serve(mux, http.MethodGet, "/stats")

			Convey("Then the snapshot is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")

				var got service.Stats
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Points, ShouldEqual, 3)
				So(got.Sources, ShouldEqual, 9)
				So(got.Categories, ShouldResemble, []string{"market_size"})
				So(got.Workers, ShouldEqual, 4)
			})
		})

		Convey("When DELETE /stats is requested", func() {
			w := serve(mux, http.MethodDelete, "/stats")

			Convey("Then 405 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestMetrics(t *testing.T) {
	Convey("Given the metrics route", t, func() {
		mux := newMux(service.Stats{Started: true})
		metrics.RecordPointIngested()

		Convey("When a request has been served", func() {
			_ = serve(mux, http.MethodGet, "/healthz")
			w := serve(mux, http.MethodGet, "/metrics")

			Convey("Then engine and HTTP metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "credence_engine_points_ingested_total")
				So(body, ShouldContainSubstring, `credence_engine_http_requests_total{endpoint="healthz",method="GET",status_code="200"}`)
			})
		})
	})
}

func TestUnknownRoute(t *testing.T) {
	Convey("Given the operational routes", t, func() {
		w := serve(newMux(service.Stats{Started: true}), http.MethodGet, "/leaderboard")

		Convey("Then unregistered paths return 404", func() {
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
