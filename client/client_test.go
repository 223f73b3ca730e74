package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	router "github.com/dkeye/Courier/internal/adapters/http"
	"github.com/dkeye/Courier/internal/app"
	"github.com/dkeye/Courier/internal/config"
	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
	"github.com/dkeye/Courier/internal/store"
)

func setupServer(t *testing.T) string {
	t.Helper()

	messages, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := &config.Config{
		Mode:             "release",
		ReadLimit:        32768,
		PingPeriod:       54 * time.Second,
		SendBuffer:       32,
		BackfillLimit:    50,
		RoomHistoryLimit: 100,
		RateLimit:        100,
		RateInterval:     10 * time.Second,
	}
	history := app.NewHistoryGateway(messages)
	broker := app.NewBroker(history)

	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, broker, history))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestClientJoinAndMessage(t *testing.T) {
	url := setupServer(t)

	rosters := make(chan []domain.Session, 4)
	messages := make(chan core.MessageEvent, 4)
	c := New(url, "alice", Handlers{
		OnUserList: func(users []domain.Session) { rosters <- users },
		OnMessage:  func(ev core.MessageEvent) { messages <- ev },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	select {
	case users := <-rosters:
		if len(users) != 1 || users[0].Username != "alice" {
			t.Errorf("roster = %+v", users)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no user_list after join")
	}

	if err := c.SendMessage("", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case ev := <-messages:
		if ev.Message != "hello" || ev.Room != domain.DefaultRoom || ev.Username != "alice" {
			t.Errorf("message event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("public message never echoed back")
	}
}

func TestClientCloseCancelsRetry(t *testing.T) {
	url := setupServer(t)

	disconnects := make(chan error, 1)
	c := New(url, "bob", Handlers{
		OnDisconnect: func(err error) { disconnects <- err },
	}).WithReconnect(50, 50*time.Millisecond)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// a second close is a no-op, and sends after close fail fast
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if err := c.SendMessage("", "too late"); err != ErrClosed {
		t.Errorf("send after close: err = %v, want ErrClosed", err)
	}
}

func TestClientConnectAfterCloseRefused(t *testing.T) {
	url := setupServer(t)

	c := New(url, "carol", Handlers{})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Connect(context.Background()); err != ErrClosed {
		t.Errorf("connect after close: err = %v, want ErrClosed", err)
	}
}
