package server

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/scribble/pkg/canvas"
	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/session"
)

// Conn is the subset of *websocket.Conn a Session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Session is one connected participant.
type Session struct {
	// ID identifies the session in the application's identity store.
	ID session.Key

	// Number is the participant number, counting from 1 in connect order.
	Number uint64

	// IP is the remote address the session connected from.
	IP string

	CreatedAt time.Time

	conn   Conn
	config *SessionConfig
	logger *slog.Logger

	// mu serializes writes to conn.
	mu sync.Mutex

	// in holds input latched since the last tick.
	inMu sync.Mutex
	in   pendingInput
	tab  protocol.Tab

	// ready is set once the client has been greeted; only ready sessions
	// are rendered.
	ready    atomic.Bool
	closed   atomic.Bool
	done     chan struct{}
	onClose  func(*Session)
	onReject func(*Session)

	lastActive atomic.Int64
	framesRecv atomic.Uint64
	framesSent atomic.Uint64
	bytesRecv  atomic.Uint64
	bytesSent  atomic.Uint64
	rejected   atomic.Uint64
}

// pendingInput accumulates client input between ticks.
type pendingInput struct {
	// dragging is the live pointer state from the latest frame.
	dragging bool
	// dragged is set if any frame since the last tick was dragging.
	dragged bool
	stopped bool
	// path holds dragged positions in arrival order.
	path  []canvas.Point
	hover *int

	// held are pointer frames that arrived after a stop; they open the next
	// tick's batch so a new stroke never joins the one just finished.
	held []canvas.PointerInput

	deleteIdx *int
	selectIdx *int

	paletteEdits []canvas.PenEdit
	paletteAdds  []canvas.Pen
	panelEdits   []canvas.PenEdit
}

// queuePointer merges one pointer frame. The caller holds inMu.
func (p *pendingInput) queuePointer(ptr canvas.PointerInput) {
	if p.stopped {
		if ptr.Pos != nil {
			pos := *ptr.Pos
			ptr.Pos = &pos
		}
		p.held = append(p.held, ptr)
		return
	}
	if ptr.Dragging {
		p.dragged = true
		if ptr.Pos != nil {
			p.path = append(p.path, *ptr.Pos)
		}
	}
	p.dragging = ptr.Dragging && !ptr.Stopped
	if ptr.Stopped {
		p.stopped = true
	}
}

func newSession(conn Conn, number uint64, config *SessionConfig, logger *slog.Logger) *Session {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := session.NewKey()
	now := time.Now()
	s := &Session{
		ID:        id,
		Number:    number,
		CreatedAt: now,
		conn:      conn,
		config:    config,
		logger:    logger.With("session_id", id.String(), "participant", number),
		done:      make(chan struct{}),
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// QueueInput merges one decoded input frame into the pending input.
//
// Dragged positions are kept in order so every sample reaches the board.
// Pointer dragging is latched until the next tick so a press and release
// that both land between two ticks still register. A stop ends the batch:
// pointer frames after it wait for the following tick. Delete and select
// requests are held until consumed. Hover always reflects the latest frame.
// Pen edits and palette additions accumulate in arrival order.
func (s *Session) QueueInput(in *canvas.Input) {
	if in == nil {
		return
	}
	s.inMu.Lock()
	defer s.inMu.Unlock()

	p := &s.in
	p.queuePointer(in.Pointer)
	p.hover = copyIndex(in.Panel.Hover)
	if in.Panel.Delete != nil {
		p.deleteIdx = copyIndex(in.Panel.Delete)
	}
	if in.Palette.Select != nil {
		p.selectIdx = copyIndex(in.Palette.Select)
	}
	p.paletteEdits = append(p.paletteEdits, in.Palette.Edits...)
	p.paletteAdds = append(p.paletteAdds, in.Palette.Add...)
	p.panelEdits = append(p.panelEdits, in.Panel.Edits...)
}

// TakeInput returns the input accumulated since the previous call and resets
// the one-shot parts of it. The live drag state and hover carry over, and
// pointer frames held back by a stop start the next batch.
func (s *Session) TakeInput() canvas.Input {
	s.inMu.Lock()
	defer s.inMu.Unlock()

	p := &s.in
	out := canvas.Input{
		Pointer: canvas.PointerInput{
			Dragging: p.dragged || p.dragging,
			Stopped:  p.stopped,
			Path:     p.path,
		},
		Panel: canvas.PanelInput{
			Edits:  p.panelEdits,
			Hover:  copyIndex(p.hover),
			Delete: p.deleteIdx,
		},
		Palette: canvas.PaletteInput{
			Edits:  p.paletteEdits,
			Add:    p.paletteAdds,
			Select: p.selectIdx,
		},
	}
	if n := len(p.path); n > 0 {
		last := p.path[n-1]
		out.Pointer.Pos = &last
	}

	held := p.held
	*p = pendingInput{dragging: p.dragging, hover: p.hover}
	for _, ptr := range held {
		p.queuePointer(ptr)
	}
	return out
}

// SetTab records the tab the client is looking at.
func (s *Session) SetTab(t protocol.Tab) {
	s.inMu.Lock()
	s.tab = t
	s.inMu.Unlock()
}

// Tab returns the tab the client is looking at.
func (s *Session) Tab() protocol.Tab {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	return s.tab
}

func copyIndex(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Send writes one frame to the client.
func (s *Session) Send(ft protocol.FrameType, payload []byte) error {
	return s.sendFrame(protocol.NewFrame(ft, payload))
}

func (s *Session) sendFrame(frame *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}
	if len(frame.Payload) > protocol.MaxPayloadSize {
		return NewSessionError(s.ID.String(), "send", protocol.ErrFrameTooLarge)
	}

	data := frame.Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return NewSessionError(s.ID.String(), "send "+frame.Type.String(), err)
	}
	s.framesSent.Add(1)
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

// sendErrorMessage sends an error frame to the client.
func (s *Session) sendErrorMessage(code protocol.ErrorCode, message string) {
	if err := s.Send(protocol.FrameError, protocol.EncodeErrorMessage(protocol.NewError(code, message))); err != nil {
		s.logger.Debug("error frame not sent", "code", code, "error", err)
	}
}

// sendPing sends a heartbeat ping to the client.
func (s *Session) sendPing() error {
	ct, pp := protocol.NewPing(uint64(time.Now().UnixMilli()))
	err := s.Send(protocol.FrameControl, protocol.EncodeControl(ct, pp))
	if err != nil && err != ErrSessionClosed {
		s.logger.Warn("ping error", "error", err)
	}
	return err
}

// sendPong answers a client ping.
func (s *Session) sendPong(timestamp uint64) {
	ct, pp := protocol.NewPong(timestamp)
	if err := s.Send(protocol.FrameControl, protocol.EncodeControl(ct, pp)); err != nil {
		s.logger.Debug("pong error", "error", err)
	}
}

// SendClose notifies the client and closes the session.
func (s *Session) SendClose(reason protocol.CloseReason, message string) {
	ct, cm := protocol.NewClose(reason, message)
	_ = s.Send(protocol.FrameControl, protocol.EncodeControl(ct, cm))
	s.Close()
}

// Close closes the session. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.closeInternal()
}

func (s *Session) closeInternal() {
	close(s.done)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}
	s.mu.Unlock()

	s.logger.Info("session closed",
		"frames_recv", s.framesRecv.Load(),
		"frames_sent", s.framesSent.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load(),
		"duration", time.Since(s.CreatedAt).Round(time.Millisecond))

	if s.onClose != nil {
		s.onClose(s)
	}
}

// IsReady reports whether the session has been greeted and is rendered on
// each tick.
func (s *Session) IsReady() bool {
	return s.ready.Load() && !s.closed.Load()
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// UpdateLastActive records client activity.
func (s *Session) UpdateLastActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last client frame.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// SessionStats contains per-session counters.
type SessionStats struct {
	ID         string
	Number     uint64
	Tab        protocol.Tab
	CreatedAt  time.Time
	LastActive time.Time
	FramesRecv uint64
	FramesSent uint64
	BytesRecv  uint64
	BytesSent  uint64
	Rejected   uint64 // malformed frames dropped
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:         s.ID.String(),
		Number:     s.Number,
		Tab:        s.Tab(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		FramesRecv: s.framesRecv.Load(),
		FramesSent: s.framesSent.Load(),
		BytesRecv:  s.bytesRecv.Load(),
		BytesSent:  s.bytesSent.Load(),
		Rejected:   s.rejected.Load(),
	}
}

// NewMockSession creates a session with no connection, for application tests.
// Sends fail with ErrNoConnection.
func NewMockSession(number uint64) *Session {
	return newSession(nil, number, DefaultSessionConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}
