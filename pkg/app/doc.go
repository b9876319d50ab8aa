// Package app is the collaborative canvas application served by the host.
//
// Every session gets a canvas.Participant, kept in a session.Store under the
// session's key and created lazily on its first tick if Connect did not
// populate it. All sessions draw on one shared canvas.Board. Each tick the
// session either sees the welcome tab, a greeting with its participant
// number, or the canvas tab, where its latched input is stepped through the
// interaction engine and the resulting primitives are encoded for the wire.
package app
