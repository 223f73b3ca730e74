package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Courier/internal/app"
	"github.com/dkeye/Courier/internal/config"
	"github.com/dkeye/Courier/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:             "release",
		ReadLimit:        32768,
		PingPeriod:       54 * time.Second,
		SendBuffer:       32,
		BackfillLimit:    50,
		RoomHistoryLimit: 100,
		RateLimit:        100,
		RateInterval:     10 * time.Second,
	}
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	messages, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := testConfig()
	history := app.NewHistoryGateway(messages).WithLimits(cfg.BackfillLimit, cfg.RoomHistoryLimit)
	broker := app.NewBroker(history)

	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, broker, history))
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

// awaitEvent reads frames until one matches the type and predicate,
// discarding unrelated traffic (backfill, presence of earlier joins).
func awaitEvent(t *testing.T, conn *websocket.Conn, typ string, pred func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("awaiting %q: %v", typ, err)
		}
		var ev map[string]any
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev["type"] != typ {
			continue
		}
		if pred == nil || pred(ev) {
			return ev
		}
	}
	t.Fatalf("timed out awaiting %q", typ)
	return nil
}

func join(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	sendEvent(t, conn, map[string]any{"type": "join", "username": username})
}

func TestChatEndToEnd(t *testing.T) {
	srv := setupServer(t)

	alice := dialWS(t, srv)
	join(t, alice, "alice")
	ev := awaitEvent(t, alice, "user_list", nil)
	if users, _ := ev["users"].([]any); len(users) != 1 {
		t.Fatalf("roster after alice = %v", ev["users"])
	}

	bob := dialWS(t, srv)
	join(t, bob, "bob")
	awaitEvent(t, alice, "user_joined", func(ev map[string]any) bool {
		return ev["username"] == "bob"
	})

	// public fan-out reaches both ends with the room tag
	sendEvent(t, alice, map[string]any{"type": "message", "message": "hi", "room": "general"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := awaitEvent(t, conn, "message", func(ev map[string]any) bool {
			return ev["message"] == "hi"
		})
		if ev["room"] != "general" || ev["username"] != "alice" {
			t.Errorf("message event = %v", ev)
		}
	}

	// private fan-out: both participants, correct direction fields
	sendEvent(t, bob, map[string]any{"type": "private_message", "to": "alice", "message": "psst"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := awaitEvent(t, conn, "private_message", nil)
		if ev["from"] != "bob" || ev["to"] != "alice" || ev["isPrivate"] != true {
			t.Errorf("private_message = %v", ev)
		}
	}

	// empty room history
	sendEvent(t, alice, map[string]any{"type": "get_room_history", "roomId": "gaming"})
	ev = awaitEvent(t, alice, "room_history", nil)
	if ev["roomId"] != "gaming" {
		t.Errorf("room_history = %v", ev)
	}
	if msgs, ok := ev["messages"].([]any); !ok || len(msgs) != 0 {
		t.Errorf("room_history messages = %v, want []", ev["messages"])
	}

	// offline recipient: targeted error, bob sees nothing
	sendEvent(t, alice, map[string]any{"type": "private_message", "to": "ghost", "message": "anyone?"})
	ev = awaitEvent(t, alice, "error", nil)
	if ev["message"] != "User ghost is not online" {
		t.Errorf("error = %v", ev)
	}

	// departure updates roster and typing for the survivors
	sendEvent(t, bob, map[string]any{"type": "typing", "isTyping": true})
	awaitEvent(t, alice, "typing_users", func(ev map[string]any) bool {
		users, _ := ev["users"].([]any)
		return len(users) == 1 && users[0] == "bob"
	})
	bob.Close()
	awaitEvent(t, alice, "user_left", func(ev map[string]any) bool {
		return ev["username"] == "bob"
	})
	awaitEvent(t, alice, "typing_users", func(ev map[string]any) bool {
		users, _ := ev["users"].([]any)
		return len(users) == 0
	})
}

func TestRESTSurface(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "running") {
		t.Errorf("liveness = %d %q", resp.StatusCode, body)
	}

	alice := dialWS(t, srv)
	join(t, alice, "alice")
	awaitEvent(t, alice, "user_list", nil)

	resp, err = http.Get(srv.URL + "/api/users")
	if err != nil {
		t.Fatalf("GET /api/users: %v", err)
	}
	var users []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	resp.Body.Close()
	if len(users) != 1 || users[0]["username"] != "alice" {
		t.Errorf("users = %v", users)
	}

	sendEvent(t, alice, map[string]any{"type": "message", "message": "for the record"})
	awaitEvent(t, alice, "message", nil)

	// persistence is async; poll the REST surface for the write
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/messages")
		if err != nil {
			t.Fatalf("GET /api/messages: %v", err)
		}
		var msgs []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
			t.Fatalf("decode messages: %v", err)
		}
		resp.Body.Close()
		if len(msgs) == 1 {
			if msgs[0]["message"] != "for the record" || msgs[0]["room"] != "general" {
				t.Errorf("persisted record = %v", msgs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("message never showed up on /api/messages")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJoinRequiredBeforePublish(t *testing.T) {
	srv := setupServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, map[string]any{"type": "message", "message": "hello?"})
	ev := awaitEvent(t, conn, "error", nil)
	if ev["message"] != "join before sending messages" {
		t.Errorf("error = %v", ev)
	}

	sendEvent(t, conn, map[string]any{"type": "join", "username": ""})
	ev = awaitEvent(t, conn, "error", nil)
	if ev["message"] != "username is required" {
		t.Errorf("error = %v", ev)
	}
}
