package core

import (
	"context"

	"github.com/dkeye/Courier/internal/domain"
)

// Frame is a raw wire payload (one JSON-encoded event).
type Frame []byte

// ConnID identifies one live transport-level link, minted at upgrade.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MessageStore is the durable history backend behind the gateway.
// Recent and ByRoom pick the newest records but report them oldest-first.
type MessageStore interface {
	Append(ctx context.Context, msg *domain.Message) error
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
	ByRoom(ctx context.Context, room string, limit int) ([]domain.Message, error)
	All(ctx context.Context) ([]domain.Message, error)
}
