package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair starts a test server running serve on the upgraded connection and
// returns the dialed client side.
func wsPair(t *testing.T, serve func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestWebSocketClient_ReadLine_EmptyMessages tests that empty messages are skipped
func TestWebSocketClient_ReadLine_EmptyMessages(t *testing.T) {
	conn := wsPair(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(""))
		conn.WriteMessage(websocket.TextMessage, []byte("   "))
		conn.WriteMessage(websocket.TextMessage, []byte("\n\n\n"))
		conn.WriteMessage(websocket.TextMessage, []byte("advance"))
		time.Sleep(100 * time.Millisecond)
	})

	line, err := NewWebSocketClient(conn, 0).ReadLine()
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}
	if line != "advance" {
		t.Errorf("Expected 'advance', got '%s'", line)
	}
}

// TestWebSocketClient_ReadLine_MultiLineMessage tests that multi-line messages
// are split and buffered correctly
func TestWebSocketClient_ReadLine_MultiLineMessage(t *testing.T) {
	conn := wsPair(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("reset 4\n  n \nrun 3"))
		time.Sleep(100 * time.Millisecond)
	})

	client := NewWebSocketClient(conn, 0)
	for _, want := range []string{"reset 4", "n", "run 3"} {
		line, err := client.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if line != want {
			t.Errorf("Expected %q, got %q", want, line)
		}
	}
}

func TestWebSocketClient_ReadLimit(t *testing.T) {
	conn := wsPair(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("n", 64)))
		time.Sleep(100 * time.Millisecond)
	})

	if _, err := NewWebSocketClient(conn, 16).ReadLine(); err == nil {
		t.Error("ReadLine accepted a message over the size limit")
	}
}

func TestWebSocketClient_SendFrame(t *testing.T) {
	received := make(chan []byte, 1)
	conn := wsPair(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
	})

	client := NewWebSocketClient(conn, 0)
	if err := client.SendFrame(&Frame{Command: "state", Sample: "frame", Position: 2, Length: 3}); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	select {
	case msg := <-received:
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("frame is not JSON: %v\n%s", err, msg)
		}
		if f.Sample != "frame" || f.Position != 2 || f.Length != 3 {
			t.Errorf("received %+v", f)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWebSocketClient_RemoteAddr(t *testing.T) {
	done := make(chan struct{})
	conn := wsPair(t, func(*websocket.Conn) { <-done })
	defer close(done)

	if addr := NewWebSocketClient(conn, 0).RemoteAddr(); addr == "" {
		t.Error("RemoteAddr should not be empty")
	}
}
