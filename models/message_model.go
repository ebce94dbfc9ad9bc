package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PairKey     string    `gorm:"size:80;not null;index:idx_messages_thread" json:"pair_key"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_unread" json:"recipient_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Read        bool      `gorm:"not null;default:false;index:idx_messages_unread" json:"read"`
	Edited      bool      `gorm:"not null;default:false" json:"edited"`
	CreatedAt   time.Time `gorm:"not null;index:idx_messages_thread" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
