package models

import (
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is an item offered for sale by a student.
type Listing struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string                `gorm:"column:title;not null" json:"title"`
	Description string                `gorm:"column:description;not null;default:''" json:"description"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Category    enums.ListingCategory `gorm:"column:category;type:text;not null;index:listings_category_idx" json:"category"`
	Condition   string                `gorm:"column:condition;not null;default:''" json:"condition"`
	Location    string                `gorm:"column:location;not null;default:''" json:"location"`
	ImageURL    string                `gorm:"column:image_url;not null;default:''" json:"image"`
	SellerID    uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index:listings_seller_id_idx" json:"seller_id"`
	SellerName  string                `gorm:"column:seller_name;not null" json:"seller_name"`
	SellerEmail string                `gorm:"column:seller_email;not null;default:''" json:"seller_email"`
	College     string                `gorm:"column:college;not null;default:''" json:"college"`
	Sold        bool                  `gorm:"column:sold;not null;default:false" json:"sold"`
	SoldAt      *time.Time            `gorm:"column:sold_at" json:"sold_at,omitempty"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
