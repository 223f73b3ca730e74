package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
)

func (ctl *ChatWSController) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "chat").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "chat").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "chat").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "chat").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "chat").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *ChatWSController) readPump(ctx context.Context, cid core.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "chat").Str("cid", string(cid)).Msg("readPump closing")
		ctl.Broker.Disconnect(cid)
		ctl.limiter.Forget(cid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "chat").Str("cid", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "chat").Str("cid", string(cid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(cid, c, data)
		}
	}
}

// handleFrame dispatches one inbound event by its type tag. The set of
// variants is closed; anything else is logged and dropped.
func (ctl *ChatWSController) handleFrame(cid core.ConnID, c *WsConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad json")
		return
	}

	switch env.Type {
	case core.EvJoin:
		ctl.handleJoin(cid, c, data)
	case core.EvMessage:
		if !ctl.allow(cid) {
			return
		}
		ctl.handleMessage(cid, c, data)
	case core.EvPrivateMessage:
		if !ctl.allow(cid) {
			return
		}
		ctl.handlePrivateMessage(cid, c, data)
	case core.EvTyping:
		ctl.handleTyping(cid, c, data)
	case core.EvGetRoomHistory:
		ctl.handleRoomHistory(cid, c, data)
	default:
		log.Warn().Str("module", "chat").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *ChatWSController) allow(cid core.ConnID) bool {
	if ctl.limiter.Allow(cid) {
		return true
	}
	log.Warn().Str("module", "chat").Str("cid", string(cid)).Msg("rate limit exceeded, dropping frame")
	return false
}

func (ctl *ChatWSController) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
