package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/vango-go/scribble/pkg/canvas"
	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/server"
	"github.com/vango-go/scribble/pkg/session"
)

func testApp() *App {
	return New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func render(t *testing.T, a *App, sess *server.Session, seq uint64) *protocol.Render {
	t.Helper()
	data, err := a.Render(context.Background(), sess, seq)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	r, err := protocol.DecodeRender(data)
	if err != nil {
		t.Fatalf("DecodeRender() error = %v", err)
	}
	return r
}

func pt(x, y float32) *canvas.Point {
	p := canvas.Pt(x, y)
	return &p
}

func TestWelcomeTab(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(7)
	if err := a.Connect(sess); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	r := render(t, a, sess, 1)
	if r.Tab != protocol.TabWelcome {
		t.Errorf("Tab = %v, want welcome", r.Tab)
	}
	if r.Text != "Hello, client #7" {
		t.Errorf("Text = %q, want %q", r.Text, "Hello, client #7")
	}
	if r.Slot != -1 {
		t.Errorf("Slot = %d, want -1 before the canvas is shown", r.Slot)
	}
	if len(r.Palette) != 1 || r.Palette[0] != canvas.DefaultPen {
		t.Errorf("Palette = %v, want default pen", r.Palette)
	}
	if a.Board().Slots() != 0 {
		t.Errorf("Slots() = %d, want 0", a.Board().Slots())
	}
}

func TestConnectTwice(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(1)
	if err := a.Connect(sess); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	err := a.Connect(sess)
	var exists session.ErrKeyExists
	if !errors.As(err, &exists) {
		t.Fatalf("second Connect() error = %v, want ErrKeyExists", err)
	}
}

func TestDrawStroke(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(1)
	a.Connect(sess)
	sess.SetTab(protocol.TabCanvas)

	sess.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: pt(1, 1)}})
	r := render(t, a, sess, 1)
	if r.Slot != 0 {
		t.Fatalf("Slot = %d, want 0", r.Slot)
	}

	sess.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: pt(5, 5)}})
	r = render(t, a, sess, 2)
	if len(r.Primitives) != 1 || len(r.Primitives[0].Points) != 2 {
		t.Fatalf("in-progress primitives = %+v, want one polyline with 2 points", r.Primitives)
	}

	sess.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Stopped: true}})
	r = render(t, a, sess, 3)
	if a.Drawings() != 1 {
		t.Fatalf("Drawings() = %d, want 1", a.Drawings())
	}
	if len(r.Rows) != 1 || r.Rows[0].Points != 2 {
		t.Errorf("Rows = %+v, want one row with 2 points", r.Rows)
	}
	if r.Slot != 0 {
		t.Errorf("Slot = %d after completion, want 0", r.Slot)
	}
}

func TestSessionsShareBoard(t *testing.T) {
	a := testApp()
	alice := server.NewMockSession(1)
	bob := server.NewMockSession(2)
	for _, s := range []*server.Session{alice, bob} {
		a.Connect(s)
		s.SetTab(protocol.TabCanvas)
	}

	alice.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: pt(2, 3)}})
	render(t, a, alice, 1)

	r := render(t, a, bob, 1)
	if r.Slot != 1 {
		t.Errorf("bob Slot = %d, want 1", r.Slot)
	}
	if len(r.Primitives) != 1 || r.Primitives[0].Points[0] != canvas.Pt(2, 3) {
		t.Errorf("bob sees %+v, want alice's partial stroke", r.Primitives)
	}
}

func TestLazyView(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(3)
	sess.SetTab(protocol.TabCanvas)

	r1 := render(t, a, sess, 1)
	r2 := render(t, a, sess, 2)
	if r1.Slot != 0 || r2.Slot != 0 {
		t.Errorf("slots = %d, %d, want 0, 0", r1.Slot, r2.Slot)
	}
	if a.Views().Len() != 1 {
		t.Errorf("Views().Len() = %d, want 1", a.Views().Len())
	}

	h, ok := a.Views().Get(sess.ID)
	if !ok {
		t.Fatal("view not stored")
	}
	var number uint64
	h.With(func(v *View) { number = v.Number })
	if number != 3 {
		t.Errorf("Number = %d, want 3", number)
	}
}

func TestDisconnectClearsSlot(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(1)
	a.Connect(sess)
	sess.SetTab(protocol.TabCanvas)

	sess.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: pt(1, 1)}})
	render(t, a, sess, 1)

	a.Disconnect(sess)
	if a.Views().Len() != 0 {
		t.Errorf("Views().Len() = %d, want 0", a.Views().Len())
	}
	d, ok := a.Board().InProgress(0)
	if !ok {
		t.Fatal("slot 0 released, want it kept")
	}
	if !d.IsEmpty() {
		t.Errorf("slot 0 = %+v, want empty", d)
	}
	if a.Drawings() != 0 {
		t.Errorf("Drawings() = %d, want 0", a.Drawings())
	}
}

func TestRenderAfterClose(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(1)
	a.Connect(sess)
	sess.SetTab(protocol.TabCanvas)
	sess.Close()
	a.Disconnect(sess)

	sess.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: pt(1, 1)}})
	render(t, a, sess, 1)

	if a.Views().Len() != 0 {
		t.Errorf("Views().Len() = %d, want closed session's view dropped", a.Views().Len())
	}
	d, _ := a.Board().InProgress(0)
	if !d.IsEmpty() {
		t.Errorf("slot 0 = %+v, want cleared", d)
	}
}

func TestRenderCancelled(t *testing.T) {
	a := testApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Render(ctx, server.NewMockSession(1), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestConcurrentRender(t *testing.T) {
	a := testApp()
	const n = 8
	sessions := make([]*server.Session, n)
	for i := range sessions {
		s := server.NewMockSession(uint64(i + 1))
		a.Connect(s)
		s.SetTab(protocol.TabCanvas)
		sessions[i] = s
	}

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *server.Session) {
			defer wg.Done()
			for tick := 0; tick < 20; tick++ {
				s.QueueInput(&canvas.Input{Pointer: canvas.PointerInput{
					Dragging: tick < 19,
					Stopped:  tick == 19,
					Pos:      pt(float32(i), float32(tick)),
				}})
				if _, err := a.Render(context.Background(), s, uint64(tick)); err != nil {
					t.Errorf("Render() error = %v", err)
					return
				}
			}
		}(i, s)
	}
	wg.Wait()

	if a.Board().Slots() != n {
		t.Errorf("Slots() = %d, want %d", a.Board().Slots(), n)
	}
	if a.Drawings() != n {
		t.Errorf("Drawings() = %d, want %d", a.Drawings(), n)
	}
}

func TestClose(t *testing.T) {
	a := testApp()
	sess := server.NewMockSession(1)
	a.Connect(sess)
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if a.Views().Len() != 0 {
		t.Errorf("Views().Len() = %d, want 0", a.Views().Len())
	}
}
