// Package middleware provides HTTP middleware for the scribble host router.
//
// This package includes:
//   - Prometheus request metrics
//   - OpenTelemetry request tracing
//
// Both are plain func(http.Handler) http.Handler values and plug into chi:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerProvider(tp)))
//
// # Prometheus Metrics
//
//   - scribble_http_requests_total: requests by route, method and status
//   - scribble_http_request_duration_seconds: handler latency by route
//   - scribble_http_requests_in_flight: requests being served
//
// Routes are labelled with the chi route pattern, never the raw path, so
// label cardinality stays bounded. WebSocket upgrades are counted with
// status 101; the connection's lifetime is not part of the latency.
package middleware
