package listings

import (
	"github.com/shopspring/decimal"
)

type CreateListingInput struct {
	Title       string          `json:"title" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Condition   string          `json:"condition" validate:"max=40"`
	Location    string          `json:"location" validate:"max=120"`
	Image       string          `json:"image" validate:"omitempty,max=2048"`
}

// UpdateListingInput carries the seller-editable fields; nil means unchanged.
type UpdateListingInput struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,max=120"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Condition   *string          `json:"condition,omitempty" validate:"omitempty,max=40"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=120"`
	Image       *string          `json:"image,omitempty" validate:"omitempty,max=2048"`
}
