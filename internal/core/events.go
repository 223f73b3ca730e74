package core

import (
	"time"

	"github.com/dkeye/Courier/internal/domain"
)

// Wire event type tags. Every frame is a JSON object carrying one of
// these in its "type" field; payload structs below are the full set of
// inbound and outbound variants.
const (
	// client -> server
	EvJoin           = "join"
	EvMessage        = "message"
	EvPrivateMessage = "private_message"
	EvTyping         = "typing"
	EvGetRoomHistory = "get_room_history"

	// server -> client
	EvUserList         = "user_list"
	EvUserJoined       = "user_joined"
	EvUserLeft         = "user_left"
	EvTypingUsers      = "typing_users"
	EvChatHistory      = "chat_history"
	EvRoomHistory      = "room_history"
	EvRoomHistoryError = "room_history_error"
	EvError            = "error"
)

// Envelope is the minimal decode used to pick a variant.
type Envelope struct {
	Type string `json:"type"`
}

type JoinPayload struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type MessagePayload struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
	Room     string `json:"room,omitempty"`
}

type PrivateMessagePayload struct {
	Type    string `json:"type"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Message string `json:"message"`
}

type TypingPayload struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"isTyping"`
}

type RoomHistoryRequest struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type UserListEvent struct {
	Type  string           `json:"type"`
	Users []domain.Session `json:"users"`
}

// PresenceEvent carries user_joined and user_left notices.
type PresenceEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	ID       string `json:"id"`
}

type MessageEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

type PrivateMessageEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsPrivate bool      `json:"isPrivate"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

type TypingUsersEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type ChatHistoryEvent struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type RoomHistoryEvent struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

type RoomHistoryErrorEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Error  string `json:"error"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
