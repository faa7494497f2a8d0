package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeBus hands out a single channel for every subscription.
type fakeBus struct {
	ch chan []byte
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return f.ch, nil
}

func TestHubForwardsBusPayloads(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(bus, []string{"arb:opportunities"}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Wait for the hub to register the client before publishing.
	deadline := time.Now().Add(time.Second)
	for hub.clientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	payload := []byte(`{"type":"new_opportunity"}`)
	bus.ch <- payload

	conn.SetReadDeadline(time.Now().Add(time.Second))
	msgType, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage error = %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("message type = %d, want text", msgType)
	}
	if string(msg) != string(payload) {
		t.Errorf("message = %s, want %s", msg, payload)
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(bus, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	deadline := time.Now().Add(time.Second)
	for hub.clientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(time.Second)
	for hub.clientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered after close")
		}
		time.Sleep(time.Millisecond)
	}
}
