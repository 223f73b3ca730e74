package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/app"
	"github.com/dkeye/Courier/internal/config"
	"github.com/dkeye/Courier/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// ChatWSController upgrades websocket connections and feeds their
// inbound events into the broker.
type ChatWSController struct {
	Broker  *app.Broker
	cfg     *config.Config
	limiter *MessageRateLimiter
}

func NewChatWSController(broker *app.Broker, cfg *config.Config) *ChatWSController {
	return &ChatWSController{
		Broker:  broker,
		cfg:     cfg,
		limiter: NewMessageRateLimiter(cfg.RateLimit, cfg.RateInterval),
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat mints a process-unique connection id, upgrades the
// request and starts the pumps. The connection stays anonymous until
// it announces a username via join.
func (ctl *ChatWSController) HandleChat(ctx context.Context, c *gin.Context) {
	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "chat").Str("cid", string(cid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}

	ctl.Broker.Connect(cid, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, cid, conn)
	}()
}
