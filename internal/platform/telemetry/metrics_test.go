package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestEcho(m *Metrics) *echo.Echo {
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/cohort/:disease/patients", func(c echo.Context) error {
		if c.Param("disease") != "diabetes" {
			return echo.NewHTTPError(http.StatusNotFound, "unknown disease")
		}
		return c.JSON(http.StatusOK, map[string]int{"total_people": 20})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", m.Handler())
	return e
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHistogram_Buckets(t *testing.T) {
	h := newHistogram([]float64{1, 5, 10})
	for _, v := range []float64{0.5, 1, 3, 7, 20} {
		h.Observe(v)
	}
	if h.Count() != 5 {
		t.Errorf("expected count 5, got %d", h.Count())
	}
	if h.Sum() != 31.5 {
		t.Errorf("expected sum 31.5, got %v", h.Sum())
	}
	cum := h.cumulativeBuckets()
	want := []int64{2, 3, 4}
	for i := range want {
		if cum[i] != want[i] {
			t.Errorf("bucket %d: expected %d, got %d", i, want[i], cum[i])
		}
	}
}

func TestMiddleware_RecordsDurationByRoute(t *testing.T) {
	m := NewMetrics(nil)
	e := newTestEcho(m)

	serve(e, "/cohort/diabetes/patients")
	serve(e, "/cohort/diabetes/patients")

	h := m.duration.with(LabelsKey(http.MethodGet, "/cohort/:disease/patients", "200"))
	if h.Count() != 2 {
		t.Errorf("expected 2 observations, got %d", h.Count())
	}
	if m.responseSize.Count() != 2 {
		t.Errorf("expected 2 response sizes, got %d", m.responseSize.Count())
	}
}

func TestMiddleware_CountsSuccessfulCohortRequests(t *testing.T) {
	m := NewMetrics(nil)
	e := newTestEcho(m)

	serve(e, "/cohort/diabetes/patients")
	if rec := serve(e, "/cohort/asthma/patients"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	serve(e, "/health")

	if got := m.CohortRequests("diabetes", "patients"); got != 1 {
		t.Errorf("expected 1 diabetes request, got %d", got)
	}
	if got := m.CohortRequests("asthma", "patients"); got != 0 {
		t.Errorf("failed requests must not be counted, got %d", got)
	}
	if h := m.duration.with(LabelsKey(http.MethodGet, "/cohort/:disease/patients", "404")); h.Count() != 1 {
		t.Errorf("expected the 404 to be timed, got %d", h.Count())
	}
}

func TestHandler_PrometheusFormat(t *testing.T) {
	m := NewMetrics(nil)
	e := newTestEcho(m)
	serve(e, "/cohort/diabetes/patients")

	rec := serve(e, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE http_server_request_duration_seconds histogram",
		`http_server_request_duration_seconds_bucket{method="GET",route="/cohort/:disease/patients",status_code="200",le="+Inf"} 1`,
		`http_server_request_duration_seconds_count{method="GET",route="/cohort/:disease/patients",status_code="200"} 1`,
		"# TYPE http_server_active_requests gauge",
		`cohort_requests_total{disease="diabetes",endpoint="patients"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, "db_pool_open_connections") {
		t.Error("pool gauges should be omitted without a database")
	}
}

func TestMiddleware_ConcurrentSafe(t *testing.T) {
	m := NewMetrics(nil)
	e := newTestEcho(m)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(e, "/cohort/diabetes/patients")
		}()
	}
	wg.Wait()

	if got := m.CohortRequests("diabetes", "patients"); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if m.active != 0 {
		t.Errorf("expected no active requests, got %d", m.active)
	}
}
