package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vango-go/scribble/internal/config"
	herrors "github.com/vango-go/scribble/internal/errors"
	"github.com/vango-go/scribble/pkg/app"
	"github.com/vango-go/scribble/pkg/server"
)

type serveFlags struct {
	envFile     string
	address     string
	tickRate    float64
	maxSessions int
	sequential  bool
	mdns        bool
	logLevel    string
	logFormat   string
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the canvas server",
		Long: `Start the canvas server.

Configuration is read from the environment (SCRIBBLE_* variables),
optionally loaded from a .env file, and then overridden by flags.

Examples:
  scribble serve
  scribble serve --address=:5000 --tick-rate=60
  scribble serve --mdns --log-format=json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.envFile)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, os.Stderr)
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func (f *serveFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.envFile, "env-file", "", "Environment file to load (default ./.env if present)")
	flags.StringVarP(&f.address, "address", "a", "", "Address to listen on (default "+config.DefaultAddress+")")
	flags.Float64VarP(&f.tickRate, "tick-rate", "r", 0, "Renders per second")
	flags.IntVar(&f.maxSessions, "max-sessions", 0, "Maximum concurrent clients (0 = unlimited)")
	flags.BoolVar(&f.sequential, "sequential", false, "Render clients one at a time")
	flags.BoolVar(&f.mdns, "mdns", false, "Advertise the server on the local network")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
}

// apply overrides cfg with the flags that were set on the command line.
func (f *serveFlags) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("address") {
		cfg.Address = f.address
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate = f.tickRate
	}
	if flags.Changed("max-sessions") {
		cfg.MaxSessions = f.maxSessions
	}
	if flags.Changed("sequential") {
		cfg.Fanout = !f.sequential
	}
	if flags.Changed("mdns") {
		cfg.MDNS = f.mdns
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, logOut)

	canvasApp := app.New(app.Options{Logger: logger})
	defer canvasApp.Close()

	srv := server.New(canvasApp, serverConfig(cfg, logger))
	if err := registerBoardMetrics(srv.Metrics(), canvasApp); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	success("Serving on %s", cfg.Address)
	info("Tick rate: %g Hz", cfg.TickRate)
	if cfg.MDNS {
		info("Advertising %s on the local network", cfg.MDNSService)
	}
	if cfg.MaxSessions == 0 {
		warn("No session limit set")
	}

	if err := srv.Run(ctx); err != nil {
		return herrors.New("E200").WithDetail(cfg.Address).Wrap(err)
	}
	return nil
}

// serverConfig maps the host configuration onto the server's.
// registerBoardMetrics exports the shared board's size and mutation counter.
func registerBoardMetrics(m *server.Metrics, a *app.App) error {
	if err := m.RegisterGauge("completed_drawings", "Completed drawings on the shared board.", func() float64 {
		return float64(a.Drawings())
	}); err != nil {
		return err
	}
	return m.RegisterGauge("board_revision", "Mutation counter of the shared board.", func() float64 {
		return float64(a.Board().Revision())
	})
}

func serverConfig(cfg *config.Config, logger *slog.Logger) *server.ServerConfig {
	sc := server.DefaultServerConfig()
	sc.Address = cfg.Address
	sc.TickRate = cfg.TickRate
	sc.Fanout = cfg.Fanout
	if cfg.FanoutLimit > 0 {
		sc.FanoutLimit = cfg.FanoutLimit
	}
	sc.MaxSessions = cfg.MaxSessions
	sc.ShutdownTimeout = cfg.ShutdownTimeout
	sc.SessionConfig = &server.SessionConfig{
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxMessageSize:    cfg.MaxMessageSize,
	}
	if cfg.MDNS {
		sc.Discovery = &server.DiscoveryConfig{
			Service:  cfg.MDNSService,
			Instance: cfg.MDNSInstance,
		}
	}
	sc.Logger = logger
	return sc
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
