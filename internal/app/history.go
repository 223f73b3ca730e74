package app

import (
	"context"
	"fmt"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

// History caps; the gateway enforces the query shape so callers can't
// ask the store for unbounded scans.
const (
	DefaultBackfillLimit    = 50
	DefaultRoomHistoryLimit = 100
)

// HistoryGateway is a thin facade over the durable message store.
// Results are oldest-first slices of the most recent messages.
type HistoryGateway struct {
	store         core.MessageStore
	backfillLimit int
	roomLimit     int
}

func NewHistoryGateway(store core.MessageStore) *HistoryGateway {
	return &HistoryGateway{
		store:         store,
		backfillLimit: DefaultBackfillLimit,
		roomLimit:     DefaultRoomHistoryLimit,
	}
}

// WithLimits overrides the default caps; zero keeps the default.
func (g *HistoryGateway) WithLimits(backfill, room int) *HistoryGateway {
	if backfill > 0 {
		g.backfillLimit = backfill
	}
	if room > 0 {
		g.roomLimit = room
	}
	return g
}

// RecentGlobal is the once-per-join backfill across all rooms.
func (g *HistoryGateway) RecentGlobal(ctx context.Context) ([]domain.Message, error) {
	msgs, err := g.store.Recent(ctx, g.backfillLimit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	return msgs, nil
}

// ForRoom serves explicit room-history requests, public or private.
func (g *HistoryGateway) ForRoom(ctx context.Context, room string) ([]domain.Message, error) {
	msgs, err := g.store.ByRoom(ctx, room, g.roomLimit)
	if err != nil {
		return nil, fmt.Errorf("room history %q: %w", room, err)
	}
	return msgs, nil
}

// Append persists one message. Callers decide whether a failure is
// user-visible; delivery never waits on it.
func (g *HistoryGateway) Append(ctx context.Context, msg *domain.Message) error {
	if err := g.store.Append(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// All backs the read-only REST surface.
func (g *HistoryGateway) All(ctx context.Context) ([]domain.Message, error) {
	msgs, err := g.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	return msgs, nil
}
