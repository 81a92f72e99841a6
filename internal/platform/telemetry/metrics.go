// Package telemetry records HTTP and cohort-query metrics and serves them in
// the Prometheus text exposition format.
package telemetry

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

const cohortRoutePrefix = "/cohort/:disease/"

// durationBuckets are request duration boundaries in seconds.
var durationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0, 30.0,
}

// sizeBuckets are response size boundaries in bytes.
var sizeBuckets = []float64{
	100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000,
}

// Metrics holds the server's counters, gauges and histograms.
type Metrics struct {
	duration       *histogramVec // method|route|status
	responseSize   *histogram
	cohortRequests *counterVec // disease|endpoint
	active         int64
	db             *sql.DB
}

// NewMetrics creates an empty metrics registry. db, when non-nil, is sampled
// for connection-pool gauges on every scrape.
func NewMetrics(db *sql.DB) *Metrics {
	return &Metrics{
		duration:       newHistogramVec(durationBuckets),
		responseSize:   newHistogram(sizeBuckets),
		cohortRequests: newCounterVec(),
		db:             db,
	}
}

// LabelsKey builds the duration histogram key for a request.
func LabelsKey(method, route, status string) string {
	return method + "|" + route + "|" + status
}

// Middleware records duration, response size and in-flight requests. Cohort
// routes that succeed also count toward cohort_requests_total.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&m.active, -1)
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := responseStatus(c, err)
			m.duration.with(LabelsKey(c.Request().Method, route, strconv.Itoa(status))).
				Observe(time.Since(start).Seconds())
			if size := c.Response().Size; size > 0 {
				m.responseSize.Observe(float64(size))
			}
			if status < http.StatusBadRequest && strings.HasPrefix(route, cohortRoutePrefix) {
				m.cohortRequests.inc(c.Param("disease") + "|" + strings.TrimPrefix(route, cohortRoutePrefix))
			}
			return err
		}
	}
}

// responseStatus is the status the error handler will write for err, or the
// committed status when the handler succeeded.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// CohortRequests returns how many successful requests a cohort endpoint
// served for a disease.
func (m *Metrics) CohortRequests(disease, endpoint string) int64 {
	return m.cohortRequests.get(disease + "|" + endpoint)
}

// Handler serves GET /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
		snap := m.duration.snapshot()
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts := strings.SplitN(k, "|", 3)
			if len(parts) != 3 {
				continue
			}
			labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
			writeHistogram(&b, "http_server_request_duration_seconds", labels, snap[k])
		}
		b.WriteByte('\n')

		b.WriteString("# HELP http_server_response_size_bytes Size of HTTP response bodies in bytes.\n")
		b.WriteString("# TYPE http_server_response_size_bytes histogram\n")
		writeHistogram(&b, "http_server_response_size_bytes", "", m.responseSize)
		b.WriteByte('\n')

		writeGauge(&b, "http_server_active_requests", "Number of in-flight HTTP requests.", atomic.LoadInt64(&m.active))

		b.WriteString("# HELP cohort_requests_total Successful cohort statistics requests by disease and endpoint.\n")
		b.WriteString("# TYPE cohort_requests_total counter\n")
		counters := m.cohortRequests.snapshot()
		keys = keys[:0]
		for k := range counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts := strings.SplitN(k, "|", 2)
			fmt.Fprintf(&b, "cohort_requests_total{disease=%q,endpoint=%q} %d\n", parts[0], parts[1], counters[k])
		}
		b.WriteByte('\n')

		if m.db != nil {
			s := m.db.Stats()
			writeGauge(&b, "db_pool_open_connections", "Open DuckDB connections.", int64(s.OpenConnections))
			writeGauge(&b, "db_pool_in_use_connections", "DuckDB connections in use.", int64(s.InUse))
			writeGauge(&b, "db_pool_idle_connections", "Idle DuckDB connections.", int64(s.Idle))
		}

		return c.String(http.StatusOK, b.String())
	}
}

func writeGauge(b *strings.Builder, name, help string, v int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %d\n\n", name, v)
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	prefix, suffix := "", ""
	if labels != "" {
		prefix = labels + ","
		suffix = "{" + labels + "}"
	}
	cum := h.cumulativeBuckets()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%sle=\"%g\"} %d\n", name, prefix, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%sle=\"+Inf\"} %d\n", name, prefix, h.Count())
	fmt.Fprintf(b, "%s_sum%s %g\n", name, suffix, h.Sum())
	fmt.Fprintf(b, "%s_count%s %d\n", name, suffix, h.Count())
}
