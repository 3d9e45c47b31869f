package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat line. IDs are ULIDs so (created_at, id) sorts in send order.
type Message struct {
	ID             string    `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"column:conversation_id;type:uuid;not null;index:messages_conversation_created_idx,priority:1" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"column:sender_id;type:uuid;not null" json:"sender_id"`
	Text           string    `gorm:"column:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime:false;index:messages_conversation_created_idx,priority:2" json:"created_at"`
}
