package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Conversation is the chat thread between one buyer and the seller of one listing.
// Item and participant fields are snapshots taken when the thread was opened.
type Conversation struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:conversations_item_buyer_key" json:"item_id"`
	ItemTitle  string          `gorm:"column:item_title;not null" json:"item_title"`
	ItemImage  string          `gorm:"column:item_image;not null;default:''" json:"item_image"`
	ItemPrice  decimal.Decimal `gorm:"column:item_price;type:numeric(12,2);not null" json:"item_price"`
	BuyerID    uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:conversations_item_buyer_key;index:conversations_buyer_updated_idx" json:"buyer_id"`
	BuyerName  string          `gorm:"column:buyer_name;not null" json:"buyer_name"`
	SellerID   uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index:conversations_seller_updated_idx" json:"seller_id"`
	SellerName string          `gorm:"column:seller_name;not null" json:"seller_name"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return userID != uuid.Nil && (c.BuyerID == userID || c.SellerID == userID)
}
