package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-go/scribble/pkg/canvas"
	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/server"
	"github.com/vango-go/scribble/pkg/session"
)

// View is the per-session state kept in the identity store.
type View struct {
	Participant *canvas.Participant
	Number      uint64
}

func newView(number uint64) View {
	return View{Participant: canvas.NewParticipant(), Number: number}
}

// App hosts one shared board for every connected session.
type App struct {
	board  *canvas.Board
	views  *session.Store[View]
	logger *slog.Logger
}

var _ server.App = (*App)(nil)

// Options configures an App.
type Options struct {
	// Board is the shared canvas. A new board is created when nil.
	Board *canvas.Board

	// Store holds per-session views. A new store is created when nil.
	Store *session.Store[View]

	Logger *slog.Logger
}

// New creates the canvas application.
func New(opts Options) *App {
	if opts.Board == nil {
		opts.Board = canvas.NewBoard()
	}
	if opts.Store == nil {
		opts.Store = session.NewStore[View]()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a := &App{
		board:  opts.Board,
		views:  opts.Store,
		logger: opts.Logger.With("component", "canvas_app"),
	}
	a.views.OnEvict(a.release)
	return a
}

// Board returns the shared board.
func (a *App) Board() *canvas.Board {
	return a.board
}

// Views returns the per-session store.
func (a *App) Views() *session.Store[View] {
	return a.views
}

// Connect stores a fresh view for sess.
func (a *App) Connect(sess *server.Session) error {
	if _, err := a.views.Put(sess.ID, newView(sess.Number)); err != nil {
		return fmt.Errorf("app: connect %s: %w", sess.ID, err)
	}
	a.logger.Debug("participant joined", "session_id", sess.ID.String(), "participant", sess.Number)
	return nil
}

// Render runs one tick for sess and returns the encoded render payload.
func (a *App) Render(ctx context.Context, sess *server.Session, seq uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	number := sess.Number
	h := a.views.GetOrCreate(sess.ID, func() View { return newView(number) })
	in := sess.TakeInput()
	tab := sess.Tab()

	v := h.Lock()
	r := &protocol.Render{Seq: seq, Tab: tab, Slot: -1}
	switch tab {
	case protocol.TabCanvas:
		frame := canvas.Step(a.board, v.Participant, in)
		r.Slot = int(frame.Slot)
		r.Primitives = frame.Primitives
		r.Rows = frame.Rows
		r.Palette = frame.Palette
		r.Selected = frame.Selected
		if frame.Completed {
			a.logger.Debug("drawing completed", "participant", v.Number, "slot", frame.Slot)
		}
	default:
		// Input that arrives while the canvas is hidden is dropped, as the
		// canvas widgets are not on screen to receive it.
		r.Text = Greeting(v.Number)
		if slot, ok := v.Participant.Slot(); ok {
			r.Slot = int(slot)
		}
		r.Palette = v.Participant.Palette()
		r.Selected = v.Participant.Selected()
	}
	h.Unlock()

	// The session may have disconnected while this tick was in flight, in
	// which case GetOrCreate above recreated its view.
	if sess.IsClosed() {
		a.views.Delete(sess.ID)
	}

	return protocol.EncodeRender(r), nil
}

// Disconnect drops the session's view and clears its in-progress drawing.
func (a *App) Disconnect(sess *server.Session) {
	if a.views.Delete(sess.ID) {
		a.logger.Debug("participant left", "session_id", sess.ID.String(), "participant", sess.Number)
	}
}

// release clears the board slot of an evicted view. The slot index stays
// allocated so other participants' slots do not move.
func (a *App) release(_ session.Key, h *session.Handle[View]) {
	h.With(func(v *View) {
		if v.Participant == nil {
			return
		}
		if slot, ok := v.Participant.Slot(); ok {
			a.board.Clear(slot)
		}
	})
}

// Drawings returns the number of completed drawings on the board.
func (a *App) Drawings() int {
	return a.board.Len()
}

// Close releases every stored view.
func (a *App) Close() error {
	return a.views.Close()
}

// Greeting is the welcome tab text for a participant.
func Greeting(number uint64) string {
	return fmt.Sprintf("Hello, client #%d", number)
}
