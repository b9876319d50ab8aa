package server

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/scribble/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Logger = testLogger()
	return cfg
}

// startTestServer serves s.Handler() and returns the ws:// URL.
func startTestServer(t *testing.T, s *Server) string {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Sessions().Shutdown(context.Background())
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads the next non-control frame.
func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		if frame.Type == protocol.FrameControl {
			continue
		}
		return frame
	}
}

func writeFrame(t *testing.T, conn *websocket.Conn, ft protocol.FrameType, payload []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, protocol.NewFrame(ft, payload).Encode()); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func readHello(t *testing.T, conn *websocket.Conn) *protocol.Hello {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameHello {
		t.Fatalf("first frame type = %v, want Hello", frame.Type)
	}
	hello, err := protocol.DecodeHello(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeHello() error = %v", err)
	}
	return hello
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
