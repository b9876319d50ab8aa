package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-go/scribble/pkg/tick"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	tickDuration   prometheus.Histogram
	ticksTotal     prometheus.Counter
	tickOverruns   prometheus.Counter
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	renderErrors   prometheus.Counter
	rejectedFrames prometheus.Counter
	bytesSent      prometheus.Counter
}

// tickBuckets span a fraction of a 90Hz period up to several periods.
var tickBuckets = []float64{.0005, .001, .0025, .005, .0111, .02, .05, .1, .25}

// NewMetrics registers the server collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	const ns = "scribble"

	return &Metrics{
		registry: registry,

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tick_duration_seconds",
			Help:      "Time spent rendering all sessions in one tick",
			Buckets:   tickBuckets,
		}),
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "ticks_total",
			Help:      "Total number of ticks run",
		}),
		tickOverruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tick_overruns_total",
			Help:      "Ticks whose render took at least a full period",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_sessions",
			Help:      "Number of connected sessions",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_total",
			Help:      "Total number of sessions admitted",
		}),
		renderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "render_errors_total",
			Help:      "Session renders that failed or panicked",
		}),
		rejectedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "rejected_frames_total",
			Help:      "Client frames dropped as malformed",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bytes_sent_total",
			Help:      "Bytes of render frames written to clients",
		}),
	}
}

// RegisterGauge exports fn as a gauge, for application-level values such as
// the number of completed drawings.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "scribble",
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeTick(st tick.Stats) {
	m.ticksTotal.Inc()
	m.tickDuration.Observe(st.Elapsed.Seconds())
	if st.Overrun {
		m.tickOverruns.Inc()
	}
}

func (m *Metrics) sessionOpened() {
	m.sessionsTotal.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	m.activeSessions.Dec()
}

// ServerStats is a point-in-time summary served on /healthz.
type ServerStats struct {
	ActiveSessions int           `json:"active_sessions"`
	TotalSessions  uint64        `json:"total_sessions"`
	ClosedSessions uint64        `json:"closed_sessions"`
	PeakSessions   int           `json:"peak_sessions"`
	Ticks          uint64        `json:"ticks"`
	Overruns       uint64        `json:"overruns"`
	TickPeriod     time.Duration `json:"tick_period_ns"`
	Uptime         time.Duration `json:"uptime_ns"`
	CollectedAt    time.Time     `json:"collected_at"`
}
