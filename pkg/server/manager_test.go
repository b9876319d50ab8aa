package server

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestManagerCreateAndClose(t *testing.T) {
	sm := NewSessionManager(nil, 0, testLogger())

	var created, closed []uint64
	sm.SetOnSessionCreate(func(s *Session) { created = append(created, s.Number) })
	sm.SetOnSessionClose(func(s *Session) { closed = append(closed, s.Number) })

	a, err := sm.Create(nil, "10.0.0.1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, _ := sm.Create(nil, "10.0.0.2")

	if a.Number != 1 || b.Number != 2 {
		t.Errorf("numbers = %d, %d, want 1, 2", a.Number, b.Number)
	}
	if a.ID == b.ID {
		t.Error("sessions share an ID")
	}
	if sm.Get(a.ID) != a {
		t.Error("Get() did not return the created session")
	}

	sm.Close(a.ID)
	sm.Close(a.ID)
	a.Close()

	if sm.Get(a.ID) != nil {
		t.Error("closed session still registered")
	}
	if len(created) != 2 || len(closed) != 1 || closed[0] != 1 {
		t.Errorf("created = %v, closed = %v", created, closed)
	}

	stats := sm.Stats()
	if stats.Active != 1 || stats.TotalCreated != 2 || stats.TotalClosed != 1 || stats.Peak != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestManagerMaxSessions(t *testing.T) {
	sm := NewSessionManager(nil, 2, testLogger())
	for i := 0; i < 2; i++ {
		if _, err := sm.Create(nil, ""); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	if _, err := sm.Create(nil, ""); !errors.Is(err, ErrMaxSessionsReached) {
		t.Errorf("Create() over limit error = %v, want ErrMaxSessionsReached", err)
	}

	// Leaving frees a place.
	sm.Snapshot()[0].Close()
	if _, err := sm.Create(nil, ""); err != nil {
		t.Errorf("Create() after a close error = %v", err)
	}
}

func TestManagerSnapshotOrdered(t *testing.T) {
	sm := NewSessionManager(nil, 0, testLogger())
	for i := 0; i < 20; i++ {
		sm.Create(nil, "")
	}
	snap := sm.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].Number >= snap[i].Number {
			t.Fatalf("Snapshot() not ordered at %d", i)
		}
	}

	seen := 0
	sm.ForEach(func(*Session) bool {
		seen++
		return seen < 5
	})
	if seen != 5 {
		t.Errorf("ForEach visited %d, want 5", seen)
	}
}

func TestManagerConcurrentCreateClose(t *testing.T) {
	sm := NewSessionManager(nil, 0, testLogger())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := sm.Create(nil, "")
			if err != nil {
				t.Error(err)
				return
			}
			s.Close()
		}()
	}
	wg.Wait()

	if sm.Count() != 0 {
		t.Errorf("Count() = %d, want 0", sm.Count())
	}
	if st := sm.Stats(); st.TotalCreated != 50 || st.TotalClosed != 50 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestManagerShutdown(t *testing.T) {
	sm := NewSessionManager(nil, 0, testLogger())
	var closed int
	var mu sync.Mutex
	sm.SetOnSessionClose(func(*Session) {
		mu.Lock()
		closed++
		mu.Unlock()
	})
	for i := 0; i < 3; i++ {
		sm.Create(nil, "")
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if sm.Count() != 0 || closed != 3 {
		t.Errorf("Count() = %d, closed = %d", sm.Count(), closed)
	}
	if _, err := sm.Create(nil, ""); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Create() after Shutdown error = %v, want ErrServerClosed", err)
	}
}
