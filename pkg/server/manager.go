package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/session"
)

// SessionManager tracks live sessions and their lifecycle callbacks.
type SessionManager struct {
	sessions map[session.Key]*Session
	mu       sync.RWMutex

	config      *SessionConfig
	maxSessions int

	// next hands out participant numbers.
	next atomic.Uint64

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	onSessionCreate func(*Session)
	onSessionClose  func(*Session)
	onFrameRejected func(*Session)
	hooksMu         sync.RWMutex

	closed atomic.Bool
	logger *slog.Logger
}

// ManagerStats contains session manager counters.
type ManagerStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// NewSessionManager creates a SessionManager. maxSessions of 0 means no limit.
func NewSessionManager(config *SessionConfig, maxSessions int, logger *slog.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[session.Key]*Session),
		config:      config,
		maxSessions: maxSessions,
		logger:      logger.With("component", "session_manager"),
	}
}

// Create admits a new session for conn.
func (sm *SessionManager) Create(conn Conn, ip string) (*Session, error) {
	if sm.closed.Load() {
		return nil, ErrServerClosed
	}

	sm.mu.Lock()
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessionsReached
	}

	sess := newSession(conn, sm.next.Add(1), sm.config, sm.logger)
	sess.IP = ip
	sess.onClose = sm.remove
	sess.onReject = sm.frameRejected

	sm.sessions[sess.ID] = sess
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	active := len(sm.sessions)
	sm.mu.Unlock()

	sm.totalCreated.Add(1)

	sm.hooksMu.RLock()
	onCreate := sm.onSessionCreate
	sm.hooksMu.RUnlock()
	if onCreate != nil {
		onCreate(sess)
	}

	sm.logger.Info("session created",
		"session_id", sess.ID.String(),
		"participant", sess.Number,
		"ip", ip,
		"active_sessions", active)

	return sess, nil
}

// remove is the session's close callback.
func (sm *SessionManager) remove(sess *Session) {
	sm.mu.Lock()
	current, ok := sm.sessions[sess.ID]
	if ok && current == sess {
		delete(sm.sessions, sess.ID)
	}
	active := len(sm.sessions)
	sm.mu.Unlock()

	if !ok || current != sess {
		return
	}
	sm.totalClosed.Add(1)

	sm.hooksMu.RLock()
	onClose := sm.onSessionClose
	sm.hooksMu.RUnlock()
	if onClose != nil {
		onClose(sess)
	}

	sm.logger.Info("session removed",
		"session_id", sess.ID.String(),
		"active_sessions", active)
}

func (sm *SessionManager) frameRejected(sess *Session) {
	sm.hooksMu.RLock()
	fn := sm.onFrameRejected
	sm.hooksMu.RUnlock()
	if fn != nil {
		fn(sess)
	}
}

// Get returns the session with the given ID, or nil.
func (sm *SessionManager) Get(id session.Key) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Close closes and removes a session. Unknown IDs are ignored.
func (sm *SessionManager) Close(id session.Key) {
	if sess := sm.Get(id); sess != nil {
		sess.Close()
	}
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Snapshot returns the live sessions ordered by participant number.
func (sm *SessionManager) Snapshot() []*Session {
	sm.mu.RLock()
	out := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	sm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ForEach calls fn for each live session until fn returns false.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	for _, s := range sm.Snapshot() {
		if !fn(s) {
			return
		}
	}
}

// Stats returns session manager counters.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	active := len(sm.sessions)
	peak := sm.peakSessions
	sm.mu.RUnlock()

	return ManagerStats{
		Active:       active,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
		Peak:         peak,
	}
}

// SetOnSessionCreate sets the callback run after a session is admitted.
func (sm *SessionManager) SetOnSessionCreate(fn func(*Session)) {
	sm.hooksMu.Lock()
	sm.onSessionCreate = fn
	sm.hooksMu.Unlock()
}

// SetOnSessionClose sets the callback run after a session is removed.
func (sm *SessionManager) SetOnSessionClose(fn func(*Session)) {
	sm.hooksMu.Lock()
	sm.onSessionClose = fn
	sm.hooksMu.Unlock()
}

// SetOnFrameRejected sets the callback run when a session drops a malformed
// client frame.
func (sm *SessionManager) SetOnFrameRejected(fn func(*Session)) {
	sm.hooksMu.Lock()
	sm.onFrameRejected = fn
	sm.hooksMu.Unlock()
}

// Shutdown closes every session and refuses new ones.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.closed.Store(true)

	sessions := sm.Snapshot()
	var wg sync.WaitGroup
	for _, sess := range sessions {
		sess := sess
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.SendClose(protocol.CloseServerShutdown, "server shutting down")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sm.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
