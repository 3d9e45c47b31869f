package enums

import (
	"fmt"
	"strings"
)

// ListingCategory classifies a marketplace listing.
type ListingCategory string

const (
	ListingCategoryBooks       ListingCategory = "Books"
	ListingCategoryElectronics ListingCategory = "Electronics"
	ListingCategoryFurniture   ListingCategory = "Furniture"
	ListingCategoryLabGear     ListingCategory = "Lab Gear"
	ListingCategoryClothing    ListingCategory = "Clothing"
	ListingCategoryCycles      ListingCategory = "Cycles"
	ListingCategoryStudyNotes  ListingCategory = "Study Notes"
	ListingCategoryHostelGear  ListingCategory = "Hostel Gear"
	ListingCategoryInstruments ListingCategory = "Instruments"
	ListingCategoryOther       ListingCategory = "Other"
)

// ListingCategoryAll is the browse sentinel meaning "no category filter".
const ListingCategoryAll = "All"

var validListingCategories = []ListingCategory{
	ListingCategoryBooks,
	ListingCategoryElectronics,
	ListingCategoryFurniture,
	ListingCategoryLabGear,
	ListingCategoryClothing,
	ListingCategoryCycles,
	ListingCategoryStudyNotes,
	ListingCategoryHostelGear,
	ListingCategoryInstruments,
	ListingCategoryOther,
}

// ListingCategories returns the categories in display order.
func ListingCategories() []ListingCategory {
	out := make([]ListingCategory, len(validListingCategories))
	copy(out, validListingCategories)
	return out
}

func (c ListingCategory) String() string {
	return string(c)
}

func (c ListingCategory) IsValid() bool {
	for _, candidate := range validListingCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseListingCategory matches case-insensitively and returns the canonical value.
func ParseListingCategory(value string) (ListingCategory, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validListingCategories {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing category %q", value)
}
