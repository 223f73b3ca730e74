package domain

import (
	"sort"
	"strings"
	"time"
)

// DefaultRoom scopes public messages that name no room.
const DefaultRoom = "general"

const privateRoomPrefix = "private_"

// Message is the persisted record shape; immutable once constructed.
// JSON tags match the history/REST payloads.
type Message struct {
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Body      string    `json:"message"`
	Room      string    `json:"room"`
	Recipient string    `json:"recipient,omitempty"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPublicMessage stamps a public message with a server-assigned time.
func NewPublicMessage(sender, senderID, body, room string) *Message {
	if room == "" {
		room = DefaultRoom
	}
	now := time.Now()
	return &Message{
		Sender:    sender,
		SenderID:  senderID,
		Body:      body,
		Room:      room,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewPrivateMessage derives the canonical private room from the two
// participants, so either side computes the same id independently.
func NewPrivateMessage(sender, senderID, recipient, body string) *Message {
	now := time.Now()
	return &Message{
		Sender:    sender,
		SenderID:  senderID,
		Body:      body,
		Room:      PrivateRoom(sender, recipient),
		Recipient: recipient,
		IsPrivate: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PrivateRoom is a pure, commutative function of the two usernames:
// "private_" + the names sorted lexicographically and joined with "_".
func PrivateRoom(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return privateRoomPrefix + strings.Join(pair, "_")
}
