// Package client is a Go client for the Courier event protocol with
// bounded reconnection: a fixed number of retry attempts with a fixed
// delay, canceled by an explicit Close.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
)

var ErrClosed = errors.New("client closed")

// Handlers are optional callbacks for server events. Nil handlers are
// skipped. Callbacks run on the read loop goroutine.
type Handlers struct {
	OnMessage        func(core.MessageEvent)
	OnPrivateMessage func(core.PrivateMessageEvent)
	OnUserList       func([]domain.Session)
	OnUserJoined     func(core.PresenceEvent)
	OnUserLeft       func(core.PresenceEvent)
	OnTypingUsers    func([]string)
	OnChatHistory    func([]domain.Message)
	OnRoomHistory    func(core.RoomHistoryEvent)
	OnError          func(message string)
	OnDisconnect     func(err error)
}

type Client struct {
	url      string
	username string
	handlers Handlers

	attempts int
	delay    time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool
}

// New prepares a client for the given ws:// URL and display name.
func New(url, username string, h Handlers) *Client {
	return &Client{
		url:      url,
		username: username,
		handlers: h,
		attempts: DefaultReconnectAttempts,
		delay:    DefaultReconnectDelay,
	}
}

// WithReconnect overrides the retry budget; attempts <= 0 disables
// reconnection entirely.
func (c *Client) WithReconnect(attempts int, delay time.Duration) *Client {
	c.attempts = attempts
	if delay > 0 {
		c.delay = delay
	}
	return c
}

// Connect dials the server, announces the username and starts the
// read loop. Connection drops trigger the bounded retry loop.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return ErrClosed
	}
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return c.send(core.JoinPayload{Type: core.EvJoin, Username: c.username})
}

// readLoop dispatches server events and reconnects on failure until
// the retry budget runs out or the client is closed.
func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if c.handlers.OnDisconnect != nil {
				c.handlers.OnDisconnect(err)
			}
			if !c.reconnect(ctx) {
				return
			}
			continue
		}
		c.dispatch(data)
	}
}

// reconnect retries the dial a bounded number of times; false means
// the budget is spent or the client was closed mid-retry.
func (c *Client) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.delay):
		}
		log.Info().Str("module", "client").Int("attempt", attempt).Msg("reconnecting")
		if err := c.dial(ctx); err == nil {
			return true
		}
	}
	log.Warn().Str("module", "client").Int("attempts", c.attempts).Msg("reconnect budget spent")
	return false
}

func (c *Client) dispatch(data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad frame")
		return
	}

	switch env.Type {
	case core.EvMessage:
		var ev core.MessageEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnMessage != nil {
			c.handlers.OnMessage(ev)
		}
	case core.EvPrivateMessage:
		var ev core.PrivateMessageEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnPrivateMessage != nil {
			c.handlers.OnPrivateMessage(ev)
		}
	case core.EvUserList:
		var ev core.UserListEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnUserList != nil {
			c.handlers.OnUserList(ev.Users)
		}
	case core.EvUserJoined:
		var ev core.PresenceEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnUserJoined != nil {
			c.handlers.OnUserJoined(ev)
		}
	case core.EvUserLeft:
		var ev core.PresenceEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnUserLeft != nil {
			c.handlers.OnUserLeft(ev)
		}
	case core.EvTypingUsers:
		var ev core.TypingUsersEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnTypingUsers != nil {
			c.handlers.OnTypingUsers(ev.Users)
		}
	case core.EvChatHistory:
		var ev core.ChatHistoryEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnChatHistory != nil {
			c.handlers.OnChatHistory(ev.Messages)
		}
	case core.EvRoomHistory:
		var ev core.RoomHistoryEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnRoomHistory != nil {
			c.handlers.OnRoomHistory(ev)
		}
	case core.EvRoomHistoryError:
		var ev core.RoomHistoryErrorEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnError != nil {
			c.handlers.OnError(ev.Error)
		}
	case core.EvError:
		var ev core.ErrorEvent
		if json.Unmarshal(data, &ev) == nil && c.handlers.OnError != nil {
			c.handlers.OnError(ev.Message)
		}
	default:
		log.Debug().Str("module", "client").Str("type", env.Type).Msg("unknown event")
	}
}

func (c *Client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return ErrClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SendMessage publishes a public message; empty room means "general".
func (c *Client) SendMessage(room, body string) error {
	return c.send(core.MessagePayload{Type: core.EvMessage, Message: body, Room: room})
}

// SendPrivate publishes a direct message to one username.
func (c *Client) SendPrivate(to, body string) error {
	return c.send(core.PrivateMessagePayload{Type: core.EvPrivateMessage, To: to, Message: body})
}

// SetTyping signals composing state.
func (c *Client) SetTyping(isTyping bool) error {
	return c.send(core.TypingPayload{Type: core.EvTyping, IsTyping: isTyping})
}

// RequestRoomHistory asks for the room-scoped backlog.
func (c *Client) RequestRoomHistory(roomID string) error {
	return c.send(core.RoomHistoryRequest{Type: core.EvGetRoomHistory, RoomID: roomID})
}

// Close disconnects and cancels any pending retry loop.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
