package chat

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

func (ctl *ChatWSController) handleJoin(cid core.ConnID, conn *WsConn, data []byte) {
	var p core.JoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad join payload")
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "bad_payload"})
		return
	}

	log.Info().Str("module", "chat").Str("cid", string(cid)).Str("username", p.Username).Msg("join")
	if err := ctl.Broker.Join(cid, p.Username); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *ChatWSController) handleMessage(cid core.ConnID, conn *WsConn, data []byte) {
	var p core.MessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad message payload")
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "bad_payload"})
		return
	}

	if err := ctl.Broker.PublishPublic(cid, p.Room, p.Message); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *ChatWSController) handlePrivateMessage(cid core.ConnID, conn *WsConn, data []byte) {
	var p core.PrivateMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad private_message payload")
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "bad_payload"})
		return
	}

	if err := ctl.Broker.PublishPrivate(cid, p.To, p.Message); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *ChatWSController) handleTyping(cid core.ConnID, _ *WsConn, data []byte) {
	var p core.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad typing payload")
		return
	}
	ctl.Broker.SetTyping(cid, p.IsTyping)
}

func (ctl *ChatWSController) handleRoomHistory(cid core.ConnID, conn *WsConn, data []byte) {
	var p core.RoomHistoryRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad get_room_history payload")
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "bad_payload"})
		return
	}
	ctl.Broker.RoomHistory(cid, p.RoomID)
}

// sendError maps a routing error onto the targeted wire error event.
// Errors here are terminal for the single request, never the session.
func (ctl *ChatWSController) sendError(conn *WsConn, err error) {
	var offline *domain.RecipientOfflineError
	switch {
	case errors.As(err, &offline):
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: offline.Error()})
	case errors.Is(err, domain.ErrUsernameEmpty):
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "username is required"})
	case errors.Is(err, domain.ErrUsernameTooLong):
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "username too long"})
	case errors.Is(err, domain.ErrMessageEmpty):
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "message is required"})
	case errors.Is(err, domain.ErrNoSession):
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "join before sending messages"})
	default:
		log.Error().Err(err).Str("module", "chat").Msg("unhandled routing error")
		ctl.sendJSON(conn, core.ErrorEvent{Type: core.EvError, Message: "internal error"})
	}
}
