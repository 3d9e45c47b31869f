package enums

import (
	"fmt"
	"strings"
)

// ListingScope narrows browsing to the caller's campus or all campuses.
type ListingScope string

const (
	ListingScopeCollege ListingScope = "college"
	ListingScopeGlobal  ListingScope = "global"
)

func (s ListingScope) IsValid() bool {
	return s == ListingScopeCollege || s == ListingScopeGlobal
}

// ParseListingScope defaults to the college scope when value is empty.
func ParseListingScope(value string) (ListingScope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ListingScopeCollege), "my college":
		return ListingScopeCollege, nil
	case string(ListingScopeGlobal), "all campuses":
		return ListingScopeGlobal, nil
	}
	return "", fmt.Errorf("invalid listing scope %q", value)
}
