package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.SubscribeTimeout = 2 * time.Second
	return &cfg
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// logsServer confirms every logsSubscribe with subID and then pushes one
// notification per entry in sigs.
func logsServer(t *testing.T, subID int64, sigs []string, connections *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		n := int32(0)
		if connections != nil {
			n = connections.Add(1)
		}

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil || req.Method != "logsSubscribe" {
				continue
			}
			conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subID})

			// The first connection of a reconnect test drops right after confirming.
			if connections != nil && n == 1 {
				return
			}
			for i, sig := range sigs {
				conn.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0",
					"method":  "logsNotification",
					"params": map[string]interface{}{
						"subscription": subID,
						"result": map[string]interface{}{
							"context": map[string]interface{}{"slot": 100 + i},
							"value": map[string]interface{}{
								"signature": sig,
								"err":       nil,
								"logs":      []string{"Program log: Instruction: Buy"},
							},
						},
					},
				})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	srv := logsServer(t, 42, []string{"sigA", "sigB"}, nil)

	client, err := NewWSClient(context.Background(), wsURL(srv), testWSConfig())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{"M2mx93ekt1fmXSVkTrUL9xVFHkmME8HTUi5Cyc5aF7K"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	for i, want := range []string{"sigA", "sigB"} {
		select {
		case n := <-ch:
			if n.Signature != want {
				t.Errorf("notification %d signature = %s, want %s", i, n.Signature, want)
			}
			if n.Slot != int64(100+i) {
				t.Errorf("notification %d slot = %d", i, n.Slot)
			}
			if n.Failed() {
				t.Errorf("notification %d reported failure", i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWSClient_ResubscribesAfterDrop(t *testing.T) {
	var connections atomic.Int32
	srv := logsServer(t, 7, []string{"afterReconnect"}, &connections)

	client, err := NewWSClient(context.Background(), wsURL(srv), testWSConfig())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{"prog"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case n := <-ch:
		if n.Signature != "afterReconnect" {
			t.Errorf("signature = %s", n.Signature)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after reconnect")
	}
	if got := connections.Load(); got < 2 {
		t.Errorf("connections = %d, want at least 2", got)
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			json.Unmarshal(msg, &req)
			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32602, "message": "Invalid Request"},
			})
		}
	}))
	defer srv.Close()

	client, err := NewWSClient(context.Background(), wsURL(srv), testWSConfig())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *RPCError", err)
	}
}

func TestWSClient_CloseClosesChannels(t *testing.T) {
	srv := logsServer(t, 1, nil, nil)

	client, err := NewWSClient(context.Background(), wsURL(srv), testWSConfig())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	if _, err := client.SubscribeLogs(context.Background(), LogsFilter{}); !errors.Is(err, ErrClientClosed) {
		t.Errorf("subscribe after close: err = %v", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewWSClient(ctx, "ws://127.0.0.1:1", testWSConfig()); err == nil {
		t.Fatal("expected dial error")
	}
}
