package listings

import (
	"strings"

	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/shopspring/decimal"
)

// ListFilter narrows the active listing feed. Empty fields match everything.
type ListFilter struct {
	// Category is a ListingCategory value; "" and "All" mean any category.
	Category string
	// Search is matched case-insensitively against title or description.
	Search   string
	MaxPrice *decimal.Decimal
	Scope    enums.ListingScope
	// College is the caller's campus, used when Scope is college.
	College string
}

type normalizedFilter struct {
	category enums.ListingCategory
	search   string
	maxPrice *decimal.Decimal
	college  string
}

func (f ListFilter) normalize() (normalizedFilter, error) {
	var out normalizedFilter

	if raw := strings.TrimSpace(f.Category); raw != "" && !strings.EqualFold(raw, enums.ListingCategoryAll) {
		category, err := enums.ParseListingCategory(raw)
		if err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		out.category = category
	}

	out.search = strings.ToLower(strings.TrimSpace(f.Search))

	if f.MaxPrice != nil {
		if f.MaxPrice.IsNegative() {
			return out, pkgerrors.New(pkgerrors.CodeValidation, "max price must not be negative")
		}
		p := *f.MaxPrice
		out.maxPrice = &p
	}

	scope := f.Scope
	if scope == "" {
		scope = enums.ListingScopeCollege
	}
	if !scope.IsValid() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	// A caller without a campus browses globally.
	if scope == enums.ListingScopeCollege {
		out.college = strings.TrimSpace(f.College)
	}
	return out, nil
}

// likePattern escapes LIKE wildcards so user input only matches literally.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
