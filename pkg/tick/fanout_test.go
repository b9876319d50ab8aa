package tick

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFanoutSequentialOrder(t *testing.T) {
	var order []int
	f := Fanout{Concurrency: 1, Logger: testLogger()}

	failed := f.Run(context.Background(), 5, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	if failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestFanoutIsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		var ran atomic.Int64
		var mu sync.Mutex
		var reported []int

		f := Fanout{
			Concurrency: concurrency,
			Logger:      testLogger(),
			OnError: func(i int, err error) {
				mu.Lock()
				reported = append(reported, i)
				mu.Unlock()
			},
		}

		failed := f.Run(context.Background(), 6, func(_ context.Context, i int) error {
			ran.Add(1)
			switch i {
			case 1:
				return errors.New("write failed")
			case 4:
				panic("render exploded")
			}
			return nil
		})

		if failed != 2 {
			t.Errorf("concurrency %d: failed = %d, want 2", concurrency, failed)
		}
		if ran.Load() != 6 {
			t.Errorf("concurrency %d: ran %d jobs, want 6", concurrency, ran.Load())
		}
		if len(reported) != 2 {
			t.Errorf("concurrency %d: reported = %v, want two indexes", concurrency, reported)
		}
	}
}

func TestFanoutPanicError(t *testing.T) {
	var got error
	f := Fanout{
		Logger:  testLogger(),
		OnError: func(_ int, err error) { got = err },
	}
	f.Run(context.Background(), 1, func(context.Context, int) error {
		panic("nope")
	})

	var pe *PanicError
	if !errors.As(got, &pe) {
		t.Fatalf("error = %v, want *PanicError", got)
	}
	if pe.Value != "nope" || len(pe.Stack) == 0 {
		t.Errorf("PanicError = %+v", pe)
	}
}

func TestFanoutConcurrencyLimit(t *testing.T) {
	const limit = 3
	var active, peak atomic.Int64
	release := make(chan struct{})

	f := Fanout{Concurrency: limit, Logger: testLogger()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(context.Background(), 12, func(context.Context, int) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			active.Add(-1)
			return nil
		})
	}()

	close(release)
	<-done

	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), limit)
	}
}

func TestFanoutZeroJobs(t *testing.T) {
	f := Fanout{Concurrency: 8}
	if failed := f.Run(context.Background(), 0, nil); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
}
