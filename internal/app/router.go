package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

// Fanout is what the router needs from the broker: delivery to all
// live connections or to one. Implemented by *Broker.
type Fanout interface {
	Broadcast(v any)
	Send(cid core.ConnID, v any) bool
}

// Router validates and fans out messages, derives private room ids and
// delegates persistence. Fan-out happens before the durable write is
// issued; a failed write is logged and never retracts the broadcast.
type Router struct {
	registry *Registry
	history  *HistoryGateway
	fan      Fanout
}

func NewRouter(registry *Registry, history *HistoryGateway, fan Fanout) *Router {
	return &Router{registry: registry, history: history, fan: fan}
}

// PublishPublic delivers to every live connection regardless of the
// receiver's room; room filtering is a consumer-side concern. The
// sender's identity comes from the registry, never the payload.
func (rt *Router) PublishPublic(cid core.ConnID, room, body string) (*domain.Message, error) {
	sess, ok := rt.registry.Resolve(cid)
	if !ok {
		return nil, domain.ErrNoSession
	}
	if body == "" {
		return nil, domain.ErrMessageEmpty
	}

	msg := domain.NewPublicMessage(sess.Username, sess.ID, body, room)
	rt.fan.Broadcast(core.MessageEvent{
		Type:      core.EvMessage,
		Username:  msg.Sender,
		Message:   msg.Body,
		Timestamp: msg.CreatedAt,
		Room:      msg.Room,
	})
	rt.persist(msg)
	return msg, nil
}

// PublishPrivate delivers to exactly two connections: the resolved
// recipient's and the sender's own (the echo doubles as a delivery
// confirmation). An offline recipient is an error for the sender only.
func (rt *Router) PublishPrivate(cid core.ConnID, to, body string) (*domain.Message, error) {
	sess, ok := rt.registry.Resolve(cid)
	if !ok {
		return nil, domain.ErrNoSession
	}
	if body == "" {
		return nil, domain.ErrMessageEmpty
	}
	rcpt, ok := rt.registry.Lookup(to)
	if !ok {
		return nil, &domain.RecipientOfflineError{Username: to}
	}

	msg := domain.NewPrivateMessage(sess.Username, sess.ID, to, body)
	ev := core.PrivateMessageEvent{
		Type:      core.EvPrivateMessage,
		Username:  msg.Sender,
		Message:   msg.Body,
		Timestamp: msg.CreatedAt,
		IsPrivate: true,
		From:      msg.Sender,
		To:        to,
	}
	rt.fan.Send(rcpt, ev)
	rt.fan.Send(cid, ev)
	rt.persist(msg)
	return msg, nil
}

// persist runs the durable write off the delivery path. Best-effort:
// receivers may already hold a message whose write later fails.
func (rt *Router) persist(msg *domain.Message) {
	go func() {
		if err := rt.history.Append(context.Background(), msg); err != nil {
			log.Error().Err(err).Str("module", "app.router").Str("room", msg.Room).Msg("persist failed after delivery")
		}
	}()
}
