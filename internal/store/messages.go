// Package store is the durable history backend: a gorm-managed sqlite
// database holding every routed message.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/Courier/internal/domain"
)

// MessageRecord is the persisted row behind domain.Message.
type MessageRecord struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	Sender    string `gorm:"size:36;not null"`
	SenderID  string `gorm:"size:36;not null"`
	Body      string `gorm:"column:message;not null"`
	Room      string `gorm:"size:110;index;not null;default:general"`
	Recipient string `gorm:"size:36"`
	IsPrivate bool   `gorm:"not null;default:false"`
}

func (MessageRecord) TableName() string { return "messages" }

// Messages provides append/query access to the message table.
type Messages struct {
	db *gorm.DB
}

// Open connects, migrates and returns the store. An error here is
// fatal for the caller: the broker does not run without its store.
func Open(path string) (*Messages, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	return New(db)
}

// New migrates the schema on an existing handle.
func New(db *gorm.DB) (*Messages, error) {
	if err := db.AutoMigrate(&MessageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate message store: %w", err)
	}
	log.Info().Str("module", "store").Msg("message store ready")
	return &Messages{db: db}, nil
}

// Append persists one immutable message.
func (m *Messages) Append(ctx context.Context, msg *domain.Message) error {
	rec := toRecord(msg)
	if err := m.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns the newest limit messages across all rooms,
// oldest-first.
func (m *Messages) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	var recs []MessageRecord
	err := m.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return fromRecordsReversed(recs), nil
}

// ByRoom returns the newest limit messages scoped to room,
// oldest-first.
func (m *Messages) ByRoom(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	var recs []MessageRecord
	err := m.db.WithContext(ctx).
		Where("room = ?", room).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("messages for room %q: %w", room, err)
	}
	return fromRecordsReversed(recs), nil
}

// All returns every persisted message, chronological.
func (m *Messages) All(ctx context.Context) ([]domain.Message, error) {
	var recs []MessageRecord
	err := m.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	out := make([]domain.Message, 0, len(recs))
	for i := range recs {
		out = append(out, fromRecord(&recs[i]))
	}
	return out, nil
}

func toRecord(msg *domain.Message) *MessageRecord {
	return &MessageRecord{
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
		Sender:    msg.Sender,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		Room:      msg.Room,
		Recipient: msg.Recipient,
		IsPrivate: msg.IsPrivate,
	}
}

func fromRecord(rec *MessageRecord) domain.Message {
	return domain.Message{
		Sender:    rec.Sender,
		SenderID:  rec.SenderID,
		Body:      rec.Body,
		Room:      rec.Room,
		Recipient: rec.Recipient,
		IsPrivate: rec.IsPrivate,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// fromRecordsReversed flips a newest-first result into the
// oldest-first order history consumers expect.
func fromRecordsReversed(recs []MessageRecord) []domain.Message {
	out := make([]domain.Message, len(recs))
	for i := range recs {
		out[len(recs)-1-i] = fromRecord(&recs[i])
	}
	return out
}
