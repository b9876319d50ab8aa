package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	herrors "github.com/vango-go/scribble/internal/errors"
)

const (
	// EnvPrefix prefixes every environment variable the host reads.
	EnvPrefix = "SCRIBBLE_"

	// DefaultAddress is the default listen address.
	DefaultAddress = "0.0.0.0:5000"

	// DefaultTickRate is the default render rate in Hz.
	DefaultTickRate = 90.0

	// DefaultMDNSService is the service type advertised on the LAN.
	DefaultMDNSService = "_scribble._tcp"
)

// Config is the complete host configuration.
type Config struct {
	// Address is the host:port the WebSocket server listens on.
	Address string `env:"ADDRESS" envDefault:"0.0.0.0:5000"`

	// TickRate is the render loop frequency in Hz.
	TickRate float64 `env:"TICK_RATE" envDefault:"90"`

	// Fanout renders sessions concurrently within a tick.
	Fanout bool `env:"FANOUT" envDefault:"true"`

	// FanoutLimit bounds concurrent session renders. Zero means one per CPU.
	FanoutLimit int `env:"FANOUT_LIMIT" envDefault:"0"`

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int `env:"MAX_SESSIONS" envDefault:"0"`

	// ReadTimeout is how long a connection may stay silent before it is
	// dropped. Clients ping well within it.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"60s"`

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	// HeartbeatInterval is the server ping interval.
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// MaxMessageSize is the largest client frame accepted, in bytes.
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" envDefault:"65536"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is text or json.
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// MDNS advertises the host on the local network.
	MDNS bool `env:"MDNS" envDefault:"false"`

	// MDNSService is the advertised service type.
	MDNSService string `env:"MDNS_SERVICE" envDefault:"_scribble._tcp"`

	// MDNSInstance is the advertised instance name. Defaults to the hostname.
	MDNSInstance string `env:"MDNS_INSTANCE"`
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	cfg := &Config{}
	// Parsing an empty environment only applies envDefault tags.
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads envFile (or ./.env when envFile is empty and the file exists),
// then parses the process environment and validates the result.
func Load(envFile string) (*Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom parses configuration from the given variables instead of the
// process environment. Keys carry the SCRIBBLE_ prefix.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, herrors.New("E100").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return herrors.New("E103").WithDetail(".env").Wrap(err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return herrors.New("E103").WithDetail(path).Wrap(err)
	}
	return nil
}

// Validate checks the configuration for values the host cannot run with.
func (c *Config) Validate() error {
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return herrors.New("E101").
			WithDetailf("tick rate %s must be in (0, 1000]", strconv.FormatFloat(c.TickRate, 'g', -1, 64))
	}
	if _, port, err := net.SplitHostPort(c.Address); err != nil {
		return herrors.New("E102").WithDetailf("%q: %v", c.Address, err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return herrors.New("E102").WithDetailf("%q: invalid port", c.Address)
	}
	if c.FanoutLimit < 0 {
		return herrors.New("E100").WithDetail("fanout limit must not be negative")
	}
	if c.MaxSessions < 0 {
		return herrors.New("E100").WithDetail("max sessions must not be negative")
	}
	if c.MaxMessageSize <= 0 {
		return herrors.New("E100").WithDetail("max message size must be positive")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.HeartbeatInterval <= 0 {
		return herrors.New("E100").WithDetail("timeouts must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return herrors.New("E104").WithDetail(err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return herrors.New("E104").WithDetailf("unknown log format %q", c.LogFormat)
	}
	if c.MDNS && !strings.HasSuffix(c.MDNSService, "._tcp") {
		return herrors.New("E100").WithDetailf("mdns service %q must end in ._tcp", c.MDNSService)
	}
	return nil
}

// Port returns the numeric port of Address, or 0 if it cannot be parsed.
func (c *Config) Port() int {
	_, port, err := net.SplitHostPort(c.Address)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// Level returns LogLevel as a slog.Level. Invalid values map to Info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
