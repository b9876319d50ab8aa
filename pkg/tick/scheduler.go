// Package tick drives the fixed-rate render loop.
//
// A Scheduler calls a render function once per tick and sleeps for whatever
// is left of the tick period. When a render takes longer than the period the
// sleep floors at zero and the loop simply runs slower; there is no catch-up.
package tick

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRate is the tick rate used when none is configured, in Hz.
const DefaultRate = 90.0

// RenderFunc renders one tick for every connected session.
type RenderFunc func(ctx context.Context, seq uint64) error

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits on a timer.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats describes one completed tick.
type Stats struct {
	Seq     uint64
	Start   time.Time
	Elapsed time.Duration // time spent rendering
	Sleep   time.Duration // time slept afterwards
	Overrun bool          // render took at least a full period
	Err     error         // error returned by the render function
}

// Config configures a Scheduler.
type Config struct {
	// Rate is the target tick rate in Hz.
	// Default: 90.
	Rate float64

	// Clock is the time source.
	// Default: SystemClock.
	Clock Clock

	// OnTick, if set, is called after every tick with its stats.
	OnTick func(Stats)

	// Logger receives overrun and render error reports.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Scheduler runs a render function at a bounded rate.
type Scheduler struct {
	period time.Duration
	clock  Clock
	onTick func(Stats)
	logger *slog.Logger

	seq      uint64
	overruns uint64
}

// New creates a Scheduler, filling unset config fields with defaults.
func New(cfg Config) *Scheduler {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		period: time.Duration(float64(time.Second) / cfg.Rate),
		clock:  cfg.Clock,
		onTick: cfg.OnTick,
		logger: cfg.Logger.With("component", "tick"),
	}
}

// Period returns the target duration of one tick.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Remaining returns how long to sleep after a tick that took elapsed:
// max(0, period - elapsed).
func (s *Scheduler) Remaining(elapsed time.Duration) time.Duration {
	if rem := s.period - elapsed; rem > 0 {
		return rem
	}
	return 0
}

// Overruns returns the number of ticks whose render took a full period or
// longer. It is only meaningful from the goroutine running the loop or
// after Run returns.
func (s *Scheduler) Overruns() uint64 {
	return s.overruns
}

// Run ticks until ctx is done and returns ctx.Err().
// Errors from render are logged and reported in Stats; they never stop the
// loop.
func (s *Scheduler) Run(ctx context.Context, render RenderFunc) error {
	s.logger.Info("tick loop started", "period", s.period)
	defer s.logger.Info("tick loop stopped", "ticks", s.seq, "overruns", s.overruns)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := s.Tick(ctx, render)
		if err := s.clock.Sleep(ctx, st.Sleep); err != nil {
			return err
		}
	}
}

// Tick runs a single render and computes how long the caller should sleep.
// It does not sleep itself.
func (s *Scheduler) Tick(ctx context.Context, render RenderFunc) Stats {
	s.seq++
	start := s.clock.Now()
	err := render(ctx, s.seq)
	elapsed := s.clock.Now().Sub(start)

	st := Stats{
		Seq:     s.seq,
		Start:   start,
		Elapsed: elapsed,
		Sleep:   s.Remaining(elapsed),
		Overrun: elapsed >= s.period,
		Err:     err,
	}
	if st.Overrun {
		s.overruns++
		s.logger.Debug("tick overrun", "seq", st.Seq, "elapsed", elapsed, "period", s.period)
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Error("render failed", "seq", st.Seq, "error", err)
	}
	if s.onTick != nil {
		s.onTick(st)
	}
	return st
}
