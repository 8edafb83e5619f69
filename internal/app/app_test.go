package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timerlist/internal/config"
	"timerlist/internal/timers"

	"github.com/gorilla/websocket"
)

func TestNew_WiresSharedStore(t *testing.T) {
	a := New(config.Default(), nil)
	if a.Store == nil || a.Producer == nil || a.Realtime == nil {
		t.Fatal("expected store, producer and realtime server")
	}
	if a.Inbox != nil {
		t.Error("inbox should be disabled without TIMERLIST_INBOX")
	}

	a.Producer.Submit(map[string]string{"name": "Tea", "duration": "5"}, nil)
	if len(a.Store.Timers()) != 1 {
		t.Error("producer and app should share one store")
	}
}

func TestServe_EndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.InboxDir = filepath.Join(t.TempDir(), "inbox")
	a := New(cfg, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Post(base+"/timers", "application/json", strings.NewReader(`{"name":"Tea","duration":"5"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var state timers.State
	json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || len(state.Timers) != 1 {
		t.Fatalf("unexpected response %d %#v", resp.StatusCode, state)
	}

	// Inbox entries reach the same store.
	os.WriteFile(filepath.Join(cfg.InboxDir, "eggs.txt"), []byte("Eggs\n10\n"), 0644)
	deadline := time.Now().Add(3 * time.Second)
	for len(a.Store.Timers()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for inbox entry")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ShutdownClosesWebSockets(t *testing.T) {
	a := New(config.Default(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("expected initial state: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if n := a.Realtime.ClientCount(); n != 0 {
		t.Errorf("expected no clients after shutdown, got %d", n)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected websocket closed by shutdown")
	}
}
