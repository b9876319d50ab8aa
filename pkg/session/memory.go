package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handle is a shared, mutually exclusive reference to one stored value.
// Every lookup of the same key returns the same *Handle.
type Handle[T any] struct {
	key   Key
	mu    sync.Mutex
	value T

	// lastUsed is the UnixNano time of the most recent lookup.
	lastUsed atomic.Int64
}

// Key returns the key the handle is stored under.
func (h *Handle[T]) Key() Key {
	return h.key
}

// With runs fn while holding the handle's lock.
func (h *Handle[T]) With(fn func(v *T)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.value)
}

// Lock acquires the handle's lock and returns the value it guards.
// The pointer must not be used after Unlock.
func (h *Handle[T]) Lock() *T {
	h.mu.Lock()
	return &h.value
}

// Unlock releases the handle's lock.
func (h *Handle[T]) Unlock() {
	h.mu.Unlock()
}

func (h *Handle[T]) touch(now time.Time) {
	h.lastUsed.Store(now.UnixNano())
}

// Store is an in-memory keyed store of lazily created values.
// It is safe for concurrent use.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[Key]*Handle[T]
	closed  bool
	done    chan struct{}

	created atomic.Uint64
	removed atomic.Uint64

	idleTimeout time.Duration
	onEvict     func(Key, *Handle[T])
	now         func() time.Time
}

// StoreOption configures Store behavior.
type StoreOption func(*storeConfig)

type storeConfig struct {
	idleTimeout     time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithIdleTimeout removes entries that have not been looked up for d.
// A zero duration, the default, keeps entries until they are deleted.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.idleTimeout = d
	}
}

// WithCleanupInterval sets how often idle entries are swept.
// Default: 1 minute. Has no effect without WithIdleTimeout.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.cleanupInterval = d
	}
}

// withClock overrides the time source; used by tests.
func withClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) {
		c.now = now
	}
}

// NewStore creates an empty store.
func NewStore[T any](opts ...StoreOption) *Store[T] {
	cfg := &storeConfig{
		cleanupInterval: 1 * time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Store[T]{
		entries:     make(map[Key]*Handle[T]),
		done:        make(chan struct{}),
		idleTimeout: cfg.idleTimeout,
		now:         cfg.now,
	}

	if cfg.idleTimeout > 0 && cfg.cleanupInterval > 0 {
		go s.cleanupLoop(cfg.cleanupInterval)
	}
	return s
}

// OnEvict registers a callback run for every entry removed by Delete, the
// idle sweep, or Close. It runs outside the store lock.
func (s *Store[T]) OnEvict(fn func(Key, *Handle[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// GetOrCreate returns the handle stored under key. On the first call for a
// key it invokes factory, stores the result, and returns its handle; later
// calls return the same handle without invoking factory again.
//
// factory runs while the store is locked and must not call back into the
// store. After Close, GetOrCreate returns a fresh handle that is not stored.
func (s *Store[T]) GetOrCreate(key Key, factory func() T) *Handle[T] {
	now := s.now()

	s.mu.RLock()
	h, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		h.touch(now)
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have created it between the locks.
	if h, ok := s.entries[key]; ok {
		h.touch(now)
		return h
	}

	h = &Handle[T]{key: key, value: factory()}
	h.touch(now)
	if s.closed {
		return h
	}
	s.entries[key] = h
	s.created.Add(1)
	return h
}

// Put stores value under key, typically when a connection is accepted.
// It fails if the key is already present or the store is closed.
func (s *Store[T]) Put(key Key, value T) (*Handle[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed{}
	}
	if _, ok := s.entries[key]; ok {
		return nil, ErrKeyExists{Key: key}
	}

	h := &Handle[T]{key: key, value: value}
	h.touch(s.now())
	s.entries[key] = h
	s.created.Add(1)
	return h, nil
}

// Get returns the handle stored under key, if any.
func (s *Store[T]) Get(key Key) (*Handle[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.entries[key]
	return h, ok
}

// Delete removes key from the store and reports whether it was present.
func (s *Store[T]) Delete(key Key) bool {
	s.mu.Lock()
	h, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
		s.removed.Add(1)
	}
	onEvict := s.onEvict
	s.mu.Unlock()

	if ok && onEvict != nil {
		onEvict(key, h)
	}
	return ok
}

// Len returns the number of stored entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in no particular order.
func (s *Store[T]) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn for each entry until fn returns false.
// fn runs under the store's read lock and must not call back into the store.
func (s *Store[T]) Range(fn func(Key, *Handle[T]) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, h := range s.entries {
		if !fn(k, h) {
			return
		}
	}
}

// Stats reports store counters.
type Stats struct {
	Live    int
	Created uint64
	Removed uint64
}

// Stats returns current counters.
func (s *Store[T]) Stats() Stats {
	return Stats{
		Live:    s.Len(),
		Created: s.created.Load(),
		Removed: s.removed.Load(),
	}
}

// Close discards every entry and stops the idle sweep.
// Calling Close more than once is a no-op.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	entries := s.entries
	s.entries = make(map[Key]*Handle[T])
	s.removed.Add(uint64(len(entries)))
	onEvict := s.onEvict
	s.mu.Unlock()

	if onEvict != nil {
		for k, h := range entries {
			onEvict(k, h)
		}
	}
	return nil
}

// cleanupLoop periodically removes idle entries.
func (s *Store[T]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep removes entries idle for longer than the idle timeout.
func (s *Store[T]) sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout).UnixNano()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	var expired []*Handle[T]
	for k, h := range s.entries {
		if h.lastUsed.Load() < cutoff {
			expired = append(expired, h)
			delete(s.entries, k)
		}
	}
	s.removed.Add(uint64(len(expired)))
	onEvict := s.onEvict
	s.mu.Unlock()

	if onEvict != nil {
		for _, h := range expired {
			onEvict(h.key, h)
		}
	}
	return len(expired)
}
