package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/scribble/pkg/protocol"
)

// ReadLoop continuously reads messages from the WebSocket connection.
// It decodes frames, answers control messages, and latches input for the
// next tick. It blocks until the connection is closed or an error occurs.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
			}
			return
		}

		s.UpdateLastActive()
		s.framesRecv.Add(1)
		s.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.reject("frame decode error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameInput:
			s.handleInputFrame(frame.Payload)

		case protocol.FrameTab:
			s.handleTabFrame(frame.Payload)

		case protocol.FrameControl:
			s.handleControlFrame(frame.Payload)

		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// reject drops a malformed frame. The session stays open.
func (s *Session) reject(msg string, err error) {
	s.rejected.Add(1)
	s.logger.Warn(msg, "error", err)
	if s.onReject != nil {
		s.onReject(s)
	}
	s.sendErrorMessage(protocol.ErrInvalidFrame, err.Error())
}

// handleInputFrame decodes an input message and latches it.
func (s *Session) handleInputFrame(payload []byte) {
	in, err := protocol.DecodeInput(payload)
	if err != nil {
		s.reject("input decode error", err)
		return
	}
	s.QueueInput(in)
}

// handleTabFrame switches the session's visible tab.
func (s *Session) handleTabFrame(payload []byte) {
	tab, err := protocol.DecodeTab(payload)
	if err != nil {
		s.reject("tab decode error", err)
		return
	}
	s.SetTab(tab)
	s.logger.Debug("tab switched", "tab", tab)
}

// handleControlFrame handles control messages (ping, pong, close).
func (s *Session) handleControlFrame(payload []byte) {
	ct, data, err := protocol.DecodeControl(payload)
	if err != nil {
		s.reject("control decode error", err)
		return
	}

	switch ct {
	case protocol.ControlPing:
		if pp, ok := data.(*protocol.PingPong); ok {
			s.sendPong(pp.Timestamp)
		}

	case protocol.ControlPong:
		s.logger.Debug("received pong")

	case protocol.ControlClose:
		if cm, ok := data.(*protocol.CloseMessage); ok {
			s.logger.Info("client closing", "reason", cm.Reason, "message", cm.Message)
		}
		s.Close()
	}
}

// WriteLoop sends heartbeats until the session is closed.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				s.Close()
				return
			}

		case <-s.done:
			return
		}
	}
}

// Start starts the session's read and heartbeat loops.
func (s *Session) Start() {
	go s.ReadLoop()
	go s.WriteLoop()
}
