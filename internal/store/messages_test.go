package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/Courier/internal/domain"
)

func setupTestStore(t *testing.T) *Messages {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	m, err := New(db)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return m
}

func appendAt(t *testing.T, m *Messages, msg *domain.Message, at time.Time) {
	t.Helper()
	msg.CreatedAt = at
	msg.UpdatedAt = at
	if err := m.Append(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestAppendRoundTrip(t *testing.T) {
	m := setupTestStore(t)

	in := domain.NewPrivateMessage("bob", "cid-b", "alice", "psst")
	if err := m.Append(context.Background(), in); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	out, err := m.ByRoom(context.Background(), in.Room, 100)
	if err != nil {
		t.Fatalf("ByRoom() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	got := out[0]
	if got.Sender != in.Sender || got.Body != in.Body || got.Room != in.Room || got.IsPrivate != in.IsPrivate {
		t.Errorf("round trip changed the message: got %+v, want %+v", got, in)
	}
	if got.Recipient != "alice" {
		t.Errorf("recipient = %q, want alice", got.Recipient)
	}
}

func TestRecentNewestOldestFirst(t *testing.T) {
	m := setupTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := domain.NewPublicMessage("alice", "cid-a", fmt.Sprintf("m%d", i), "general")
		appendAt(t, m, msg, base.Add(time.Duration(i)*time.Minute))
	}

	out, err := m.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d messages, want 3", len(out))
	}
	// the newest three, reported oldest-first
	for i, want := range []string{"m2", "m3", "m4"} {
		if out[i].Body != want {
			t.Errorf("out[%d].Body = %q, want %q", i, out[i].Body, want)
		}
	}
}

func TestByRoomScopesAndCaps(t *testing.T) {
	m := setupTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		msg := domain.NewPublicMessage("alice", "cid-a", fmt.Sprintf("g%d", i), "gaming")
		appendAt(t, m, msg, base.Add(time.Duration(i)*time.Minute))
	}
	other := domain.NewPublicMessage("bob", "cid-b", "off topic", "general")
	appendAt(t, m, other, base.Add(10*time.Minute))

	t.Run("scoped to the room", func(t *testing.T) {
		out, err := m.ByRoom(context.Background(), "gaming", 100)
		if err != nil {
			t.Fatalf("ByRoom() error = %v", err)
		}
		if len(out) != 4 {
			t.Fatalf("got %d messages, want 4", len(out))
		}
		for _, msg := range out {
			if msg.Room != "gaming" {
				t.Errorf("leaked message from room %q", msg.Room)
			}
		}
	})

	t.Run("cap keeps the newest", func(t *testing.T) {
		out, err := m.ByRoom(context.Background(), "gaming", 2)
		if err != nil {
			t.Fatalf("ByRoom() error = %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("got %d messages, want 2", len(out))
		}
		if out[0].Body != "g2" || out[1].Body != "g3" {
			t.Errorf("capped result = [%s %s], want [g2 g3]", out[0].Body, out[1].Body)
		}
	})

	t.Run("empty room", func(t *testing.T) {
		out, err := m.ByRoom(context.Background(), "empty", 100)
		if err != nil {
			t.Fatalf("ByRoom() error = %v", err)
		}
		if len(out) != 0 {
			t.Errorf("got %d messages, want 0", len(out))
		}
	})
}

func TestAllChronological(t *testing.T) {
	m := setupTestStore(t)
	base := time.Now().Add(-time.Hour)
	appendAt(t, m, domain.NewPublicMessage("a", "1", "second", "general"), base.Add(time.Minute))
	appendAt(t, m, domain.NewPublicMessage("a", "1", "first", "general"), base)
	appendAt(t, m, domain.NewPublicMessage("a", "1", "third", "general"), base.Add(2*time.Minute))

	out, err := m.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d messages, want 3", len(out))
	}
	for i, want := range []string{"first", "second", "third"} {
		if out[i].Body != want {
			t.Errorf("out[%d].Body = %q, want %q", i, out[i].Body, want)
		}
	}
}
