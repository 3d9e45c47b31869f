package wishlist

import (
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Snapshot is the listing data copied onto a wishlist entry when it is saved.
type Snapshot struct {
	Title string
	Price decimal.Decimal
	Image string
}

// SavedItem is a wishlist entry plus whether its listing can still be bought.
type SavedItem struct {
	models.WishlistEntry `gorm:"embedded"`
	Available            bool `gorm:"column:available" json:"available"`
}

type ToggleResult struct {
	Saved bool `json:"saved"`
}
