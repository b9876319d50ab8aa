package server

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-go/scribble/pkg/tick"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a message from the client.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// DiscoveryConfig configures LAN advertisement over mDNS.
type DiscoveryConfig struct {
	// Service is the DNS-SD service type, e.g. "_scribble._tcp".
	Service string

	// Instance is the advertised instance name.
	// Default: the hostname.
	Instance string
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on.
	// Default: "0.0.0.0:5000".
	Address string

	// TickRate is the render rate in Hz.
	// Default: 90.
	TickRate float64

	// Fanout renders sessions concurrently within a tick.
	Fanout bool

	// FanoutLimit bounds concurrent renders when Fanout is set.
	// Default: GOMAXPROCS.
	FanoutLimit int

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	MaxSessions int

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: allows all origins; clients are native programs on the LAN.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 5 seconds.
	ShutdownTimeout time.Duration

	// Discovery enables mDNS advertisement when non-nil.
	Discovery *DiscoveryConfig

	// Registry receives the server's Prometheus collectors and backs /metrics.
	// Default: a fresh registry.
	Registry *prometheus.Registry

	// TracerProvider supplies the tick tracer.
	// Default: the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider

	// Clock drives the tick loop.
	// Default: tick.SystemClock.
	Clock tick.Clock

	// Logger is the base logger.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         "0.0.0.0:5000",
		TickRate:        tick.DefaultRate,
		Fanout:          true,
		FanoutLimit:     runtime.GOMAXPROCS(0),
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
		SessionConfig:   DefaultSessionConfig(),
		ShutdownTimeout: 5 * time.Second,
	}
}

// Clone returns a shallow copy with a deep-copied SessionConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.SessionConfig = c.SessionConfig.Clone()
	if c.Discovery != nil {
		d := *c.Discovery
		clone.Discovery = &d
	}
	return &clone
}

// withDefaults fills unset fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	if c == nil {
		return DefaultServerConfig()
	}
	cfg := c.Clone()
	defaults := DefaultServerConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaults.TickRate
	}
	if cfg.FanoutLimit <= 0 {
		cfg.FanoutLimit = defaults.FanoutLimit
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = defaults.ReadBufferSize
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaults.WriteBufferSize
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = defaults.CheckOrigin
	}
	if cfg.SessionConfig == nil {
		cfg.SessionConfig = defaults.SessionConfig
	} else {
		sd := DefaultSessionConfig()
		if cfg.SessionConfig.ReadTimeout == 0 {
			cfg.SessionConfig.ReadTimeout = sd.ReadTimeout
		}
		if cfg.SessionConfig.WriteTimeout == 0 {
			cfg.SessionConfig.WriteTimeout = sd.WriteTimeout
		}
		if cfg.SessionConfig.HeartbeatInterval == 0 {
			cfg.SessionConfig.HeartbeatInterval = sd.HeartbeatInterval
		}
		if cfg.SessionConfig.MaxMessageSize == 0 {
			cfg.SessionConfig.MaxMessageSize = sd.MaxMessageSize
		}
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = tick.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// WithAddress returns a copy with the given address.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	clone := c.Clone()
	clone.Address = addr
	return clone
}

// WithMaxSessions returns a copy with the given session limit.
func (c *ServerConfig) WithMaxSessions(n int) *ServerConfig {
	clone := c.Clone()
	clone.MaxSessions = n
	return clone
}
