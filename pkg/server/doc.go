// Package server hosts canvas sessions over WebSocket.
//
// A Server accepts WebSocket connections, admits each one as a Session, and
// drives a fixed-rate tick loop that renders every live session through an
// App. Client frames are read on a per-session goroutine and latched into the
// session's pending input; the tick loop drains that input once per tick, so
// an application only ever sees one consolidated Input per session per tick.
//
// # Lifecycle
//
//	conn ──► SessionManager.Create ──► App.Connect ──► Hello frame
//	                                        │
//	             tick loop ◄────────────────┘
//	  (App.Render per session, Render frame)
//	                                        │
//	  read error / close ──► Session.Close ──► App.Disconnect
//
// # Routes
//
// Handler serves three routes:
//
//	GET /ws       WebSocket endpoint
//	GET /healthz  JSON liveness and session counters
//	GET /metrics  Prometheus exposition
//
// # Observability
//
// The server exports Prometheus metrics (tick duration, overruns, sessions,
// render errors, bytes sent) on its own registry and opens an OpenTelemetry
// span per tick, with a child span per session render.
package server
