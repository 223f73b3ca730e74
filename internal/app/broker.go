package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

// Broker is the top-level coordinator. It owns the live-connection
// map, the session registry and the typing aggregator, wires inbound
// events to the router/gateway and performs fan-out.
//
// Per connection the life cycle is anonymous -> joined -> closed; a
// join while already joined re-registers (last-join-wins). Store calls
// run on their own goroutines so history and persistence never hold
// the in-memory state hostage.
type Broker struct {
	mu    sync.RWMutex
	conns map[core.ConnID]core.SignalConnection

	registry *Registry
	typing   *Typing
	router   *Router
	history  *HistoryGateway
}

func NewBroker(history *HistoryGateway) *Broker {
	b := &Broker{
		conns:   make(map[core.ConnID]core.SignalConnection),
		history: history,
	}
	b.registry = NewRegistry()
	b.typing = NewTyping(b.registry)
	b.router = NewRouter(b.registry, history, b)
	return b
}

// Registry exposes the roster for the read-only REST surface.
func (b *Broker) Registry() *Registry { return b.registry }

// Connect tracks a freshly upgraded connection. It stays anonymous
// until a join names it.
func (b *Broker) Connect(cid core.ConnID, conn core.SignalConnection) {
	b.mu.Lock()
	b.conns[cid] = conn
	total := len(b.conns)
	b.mu.Unlock()
	log.Info().Str("module", "app.broker").Str("cid", string(cid)).Int("total", total).Msg("connection opened")
}

// Disconnect closes out a connection: unregister, clear typing state,
// then tell everyone who left and what the world looks like now.
func (b *Broker) Disconnect(cid core.ConnID) {
	b.mu.Lock()
	delete(b.conns, cid)
	b.mu.Unlock()

	sess, roster := b.registry.Unregister(cid)
	typers := b.typing.Clear(cid)
	if sess == nil {
		// never joined, nobody knew it existed
		return
	}
	b.Broadcast(core.PresenceEvent{Type: core.EvUserLeft, Username: sess.Username, ID: sess.ID})
	b.Broadcast(core.UserListEvent{Type: core.EvUserList, Users: roster})
	b.Broadcast(core.TypingUsersEvent{Type: core.EvTypingUsers, Users: typers})
	log.Info().Str("module", "app.broker").Str("cid", string(cid)).Str("username", sess.Username).Msg("connection closed")
}

// Join registers the session, announces the new roster and schedules
// the global backfill for the joining connection alone.
func (b *Broker) Join(cid core.ConnID, username string) error {
	roster, err := b.registry.Register(cid, username)
	if err != nil {
		return err
	}
	b.Broadcast(core.UserListEvent{Type: core.EvUserList, Users: roster})
	b.Broadcast(core.PresenceEvent{Type: core.EvUserJoined, Username: username, ID: string(cid)})

	go func() {
		msgs, err := b.history.RecentGlobal(context.Background())
		if err != nil {
			// backfill is best effort; the session goes on without it
			log.Error().Err(err).Str("module", "app.broker").Str("cid", string(cid)).Msg("global backfill failed")
			return
		}
		b.Send(cid, core.ChatHistoryEvent{Type: core.EvChatHistory, Messages: msgs})
	}()
	return nil
}

// PublishPublic routes a public message; see Router.PublishPublic.
func (b *Broker) PublishPublic(cid core.ConnID, room, body string) error {
	_, err := b.router.PublishPublic(cid, room, body)
	return err
}

// PublishPrivate routes a direct message; see Router.PublishPrivate.
func (b *Broker) PublishPrivate(cid core.ConnID, to, body string) error {
	_, err := b.router.PublishPrivate(cid, to, body)
	return err
}

// SetTyping flips the typing flag and broadcasts the aggregate when it
// changed. Anonymous connections are ignored.
func (b *Broker) SetTyping(cid core.ConnID, isTyping bool) {
	typers, ok := b.typing.Set(cid, isTyping)
	if !ok {
		return
	}
	b.Broadcast(core.TypingUsersEvent{Type: core.EvTypingUsers, Users: typers})
}

// RoomHistory answers a room-scoped history request on the requesting
// connection only; a store fault becomes a targeted error event and
// never aborts the session.
func (b *Broker) RoomHistory(cid core.ConnID, roomID string) {
	go func() {
		msgs, err := b.history.ForRoom(context.Background(), roomID)
		if err != nil {
			log.Error().Err(err).Str("module", "app.broker").Str("cid", string(cid)).Str("room", roomID).Msg("room history failed")
			b.Send(cid, core.RoomHistoryErrorEvent{Type: core.EvRoomHistoryError, RoomID: roomID, Error: "Failed to load room history"})
			return
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		b.Send(cid, core.RoomHistoryEvent{Type: core.EvRoomHistory, RoomID: roomID, Messages: msgs})
	}()
}

// Broadcast fans an event out to every live connection, joined or not.
func (b *Broker) Broadcast(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broker").Msg("broadcast marshal")
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for cid, conn := range b.conns {
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.broker").Str("cid", string(cid)).Msg("broadcast drop")
		}
	}
}

// Send delivers an event to one connection; false if it is gone.
func (b *Broker) Send(cid core.ConnID, v any) bool {
	b.mu.RLock()
	conn, ok := b.conns[cid]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broker").Msg("send marshal")
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.broker").Str("cid", string(cid)).Msg("send drop")
		return false
	}
	return true
}
