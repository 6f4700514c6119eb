package metrics

import (
	"strconv"
	"time"
)

// Mock is the metric set of a featmock process.
//
// # Label Conventions
//
//   - feature: the owning feature name (feat-users) or "none" for misses
//   - method: upper-case HTTP method
//   - status: numeric HTTP status
//   - result: "ok" or "error" for reloads
type Mock struct {
	// Requests counts dispatched mock requests.
	// Labels: feature, method, status
	Requests *Counter

	// Duration tracks handling time including the configured delay.
	// Labels: feature, method
	Duration *Histogram

	// Misses counts requests under the base path that matched no route.
	Misses *Counter

	// HandlerErrors counts handler failures and panics.
	// Labels: feature
	HandlerErrors *Counter

	// Routes is the number of active routes per feature.
	// Labels: feature
	Routes *Gauge

	// Reloads counts reload attempts.
	// Labels: result
	Reloads *Counter

	// LiveClients is the number of connected live-reload browsers.
	LiveClients *Gauge

	// Uptime is the process uptime in seconds, sampled at scrape time.
	Uptime *Gauge

	registry *Registry
	start    time.Time
}

// NewMock registers the featmock metric set and the Go runtime gauges on a
// fresh registry.
func NewMock() *Mock {
	r := NewRegistry()
	m := &Mock{
		registry: r,
		start:    time.Now(),
		Requests: r.NewCounter(
			"featmock_requests_total",
			"Total number of dispatched mock requests",
			"feature", "method", "status",
		),
		Duration: r.NewHistogram(
			"featmock_request_duration_seconds",
			"Mock request duration in seconds, including configured delay",
			DelayBuckets,
			"feature", "method",
		),
		Misses: r.NewCounter(
			"featmock_unmatched_requests_total",
			"Requests under the mock base path that matched no route",
		),
		HandlerErrors: r.NewCounter(
			"featmock_handler_errors_total",
			"Mock handler failures and panics",
			"feature",
		),
		Routes: r.NewGauge(
			"featmock_routes",
			"Active mock routes per feature",
			"feature",
		),
		Reloads: r.NewCounter(
			"featmock_reloads_total",
			"Route reload attempts",
			"result",
		),
		LiveClients: r.NewGauge(
			"featmock_livereload_clients",
			"Connected live-reload clients",
		),
		Uptime: r.NewGauge(
			"featmock_uptime_seconds",
			"Process uptime in seconds",
		),
	}

	rc := NewRuntimeCollector(r)
	r.OnCollect(func() {
		_ = m.Uptime.Set(time.Since(m.start).Seconds())
		rc.Collect()
	})
	return m
}

// Registry returns the underlying registry.
func (m *Mock) Registry() *Registry { return m.registry }

// ObserveRequest records one dispatched request. Nil-safe.
func (m *Mock) ObserveRequest(feature, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if vec, err := m.Requests.WithLabels(feature, method, strconv.Itoa(status)); err == nil {
		_ = vec.Inc()
	}
	if vec, err := m.Duration.WithLabels(feature, method); err == nil {
		vec.Observe(elapsed.Seconds())
	}
}

// ObserveMiss records a request nothing matched. Nil-safe.
func (m *Mock) ObserveMiss() {
	if m == nil {
		return
	}
	_ = m.Misses.Inc()
}

// ObserveHandlerError records a failed handler. Nil-safe.
func (m *Mock) ObserveHandlerError(feature string) {
	if m == nil {
		return
	}
	if vec, err := m.HandlerErrors.WithLabels(feature); err == nil {
		_ = vec.Inc()
	}
}

// SetRoutes replaces the per-feature route counts. Nil-safe.
func (m *Mock) SetRoutes(counts map[string]int) {
	if m == nil {
		return
	}
	m.Routes.Reset()
	for feature, n := range counts {
		if vec, err := m.Routes.WithLabels(feature); err == nil {
			vec.Set(float64(n))
		}
	}
}

// ObserveReload records a reload attempt. Nil-safe.
func (m *Mock) ObserveReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	if vec, verr := m.Reloads.WithLabels(result); verr == nil {
		_ = vec.Inc()
	}
}

// AddLiveClients moves the live-reload client gauge by delta. Nil-safe.
func (m *Mock) AddLiveClients(delta int) {
	if m == nil {
		return
	}
	_ = m.LiveClients.Add(float64(delta))
}
