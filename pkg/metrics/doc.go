// Package metrics provides Prometheus-compatible metrics for the mock server.
//
// It writes the Prometheus text exposition format (text/plain; version=0.0.4)
// with counters, gauges and histograms that are safe for concurrent use.
//
// # Mock metrics
//
// NewMock registers the featmock set on its own registry:
//
//   - featmock_requests_total{feature,method,status}
//   - featmock_request_duration_seconds{feature,method}
//   - featmock_unmatched_requests_total
//   - featmock_handler_errors_total{feature}
//   - featmock_routes{feature}
//   - featmock_reloads_total{result}
//   - featmock_livereload_clients
//   - featmock_uptime_seconds plus go_* runtime gauges
//
// The Observe* helpers are nil-safe so callers can hold a nil *Mock when
// metrics are off:
//
//	m := metrics.NewMock()
//	m.ObserveRequest("feat-users", "GET", 200, elapsed)
//	http.Handle("/metrics", m.Registry().Handler())
package metrics
