package tick

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Fanout runs one job per session within a tick.
//
// With Concurrency of 1 or less the jobs run sequentially on the caller's
// goroutine. Otherwise at most Concurrency jobs run at once. Either way a
// failing or panicking job is logged and counted, and the remaining jobs
// still run.
type Fanout struct {
	Concurrency int
	Logger      *slog.Logger

	// OnError, if set, is called for every failed job.
	OnError func(index int, err error)
}

// JobFunc is one unit of per-session work.
type JobFunc func(ctx context.Context, index int) error

// PanicError wraps a value recovered from a panicking job.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the panic value as an error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("tick: job panicked: %v", e.Value)
}

// Run executes job for indexes 0..n-1 and returns how many failed.
func (f Fanout) Run(ctx context.Context, n int, job JobFunc) int {
	if n <= 0 {
		return 0
	}

	var failed atomic.Int64
	runOne := func(i int) {
		if err := f.safe(ctx, i, job); err != nil {
			failed.Add(1)
			f.report(i, err)
		}
	}

	if f.Concurrency <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			runOne(i)
		}
		return int(failed.Load())
	}

	var g errgroup.Group
	g.SetLimit(f.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			runOne(i)
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

func (f Fanout) safe(ctx context.Context, i int, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return job(ctx, i)
}

func (f Fanout) report(i int, err error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if pe, ok := err.(*PanicError); ok {
		logger.Error("session job panic", "index", i, "panic", pe.Value, "stack", string(pe.Stack))
	} else {
		logger.Warn("session job failed", "index", i, "error", err)
	}
	if f.OnError != nil {
		f.OnError(i, err)
	}
}
