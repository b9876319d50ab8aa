package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func testRouter(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, m := range mw {
		r.Use(m)
	}
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chi.URLParam(r, "id")))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Get("/silent", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPrometheusCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := testRouter(Prometheus(WithRegistry(reg)))

	serve(h, "/items/1")
	serve(h, "/items/2")
	serve(h, "/missing")
	serve(h, "/silent")

	expected := `
# HELP scribble_http_requests_total Total number of HTTP requests served
# TYPE scribble_http_requests_total counter
scribble_http_requests_total{method="GET",route="/items/{id}",status="200"} 2
scribble_http_requests_total{method="GET",route="/silent",status="200"} 1
scribble_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "scribble_http_requests_total"); err != nil {
		t.Fatal(err)
	}

	n, err := testutil.GatherAndCount(reg, "scribble_http_request_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestPrometheusOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := testRouter(Prometheus(
		WithRegistry(reg),
		WithNamespace("test"),
		WithSubsystem("api"),
		WithConstLabels(prometheus.Labels{"instance": "a"}),
		WithBuckets([]float64{0.1, 1}),
	))
	serve(h, "/items/9")

	n, err := testutil.GatherAndCount(reg, "test_api_requests_total", "test_api_requests_in_flight")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}

func TestStatusLabelUpgrade(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Upgrade", "websocket")
	if got := statusLabel(0, r); got != "101" {
		t.Errorf("statusLabel(0, upgrade) = %q, want 101", got)
	}
	if got := statusLabel(0, httptest.NewRequest(http.MethodGet, "/", nil)); got != "200" {
		t.Errorf("statusLabel(0) = %q, want 200", got)
	}
	if got := statusLabel(503, r); got != "503" {
		t.Errorf("statusLabel(503) = %q, want 503", got)
	}
}

// recordingProvider records the spans started through it.
type recordingProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{p: p}
}

func (p *recordingProvider) ended() []*recordingSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*recordingSpan(nil), p.spans...)
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recordingSpan{name: name}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, s)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span
	name   string
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetName(name string)              { s.name = name }
func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption)       { s.ended = true }

func TestOpenTelemetrySpans(t *testing.T) {
	tp := &recordingProvider{}
	var inHandler trace.Span

	r := chi.NewRouter()
	r.Use(OpenTelemetry(WithTracerProvider(tp), WithTracerName("test")))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	serve(r, "/items/4")
	serve(r, "/boom")

	spans := tp.ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].name != "HTTP GET /items/{id}" {
		t.Errorf("span name = %q, want %q", spans[0].name, "HTTP GET /items/{id}")
	}
	if inHandler != trace.Span(spans[0]) {
		t.Error("handler context does not carry the request span")
	}
	if spans[0].status != codes.Unset {
		t.Errorf("status = %v, want unset", spans[0].status)
	}
	if spans[1].status != codes.Error {
		t.Errorf("5xx status = %v, want error", spans[1].status)
	}
	for _, s := range spans {
		if !s.ended {
			t.Errorf("span %q not ended", s.name)
		}
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tp := &recordingProvider{}
	h := testRouter(OpenTelemetry(
		WithTracerProvider(tp),
		WithFilter(func(r *http.Request) bool { return r.URL.Path != "/silent" }),
	))

	serve(h, "/silent")
	if rec := serve(h, "/items/7"); rec.Body.String() != "7" {
		t.Errorf("body = %q, want 7", rec.Body.String())
	}
	if n := len(tp.ended()); n != 1 {
		t.Errorf("spans = %d, want 1", n)
	}
}
