package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index:reviews_seller_created_idx" json:"seller_id"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	BuyerName string    `gorm:"column:buyer_name;not null" json:"buyer_name"`
	Rating    int       `gorm:"column:rating;not null" json:"rating"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
