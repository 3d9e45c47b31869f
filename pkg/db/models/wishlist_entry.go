package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WishlistEntry records a user saving a listing, with a snapshot for display.
type WishlistEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:wishlist_entries_user_item_key" json:"user_id"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:wishlist_entries_user_item_key" json:"item_id"`
	Title     string          `gorm:"column:title;not null" json:"title"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Image     string          `gorm:"column:image;not null;default:''" json:"image"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"saved_at"`
}
