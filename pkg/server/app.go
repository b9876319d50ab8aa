package server

import "context"

// App is the application hosted by a Server.
//
// Connect runs once per session before its first tick, Render once per tick
// for every live session, and Disconnect once after the session closes.
// Render runs concurrently for different sessions when fan-out is enabled,
// and must not block on other sessions.
type App interface {
	Connect(sess *Session) error
	Render(ctx context.Context, sess *Session, seq uint64) ([]byte, error)
	Disconnect(sess *Session)
}

// AppFuncs adapts plain functions to App. Nil fields are no-ops.
type AppFuncs struct {
	OnConnect    func(sess *Session) error
	OnRender     func(ctx context.Context, sess *Session, seq uint64) ([]byte, error)
	OnDisconnect func(sess *Session)
}

// Connect calls OnConnect.
func (a AppFuncs) Connect(sess *Session) error {
	if a.OnConnect == nil {
		return nil
	}
	return a.OnConnect(sess)
}

// Render calls OnRender.
func (a AppFuncs) Render(ctx context.Context, sess *Session, seq uint64) ([]byte, error) {
	if a.OnRender == nil {
		return nil, nil
	}
	return a.OnRender(ctx, sess, seq)
}

// Disconnect calls OnDisconnect.
func (a AppFuncs) Disconnect(sess *Session) {
	if a.OnDisconnect != nil {
		a.OnDisconnect(sess)
	}
}
