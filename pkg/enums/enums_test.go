package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingCategory(t *testing.T) {
	got, err := ParseListingCategory(" lab gear ")
	require.NoError(t, err)
	assert.Equal(t, ListingCategoryLabGear, got)

	_, err = ParseListingCategory("Weapons")
	assert.Error(t, err)

	_, err = ParseListingCategory(ListingCategoryAll)
	assert.Error(t, err, "All is a browse sentinel, not a listing category")
}

func TestListingCategoriesReturnsCopy(t *testing.T) {
	cats := ListingCategories()
	cats[0] = "Mutated"
	assert.Equal(t, ListingCategoryBooks, ListingCategories()[0])
}

func TestParseListingScope(t *testing.T) {
	cases := map[string]ListingScope{
		"":             ListingScopeCollege,
		"My College":   ListingScopeCollege,
		"global":       ListingScopeGlobal,
		"All Campuses": ListingScopeGlobal,
	}
	for raw, want := range cases {
		got, err := ParseListingScope(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseListingScope("moon")
	assert.Error(t, err)
}

func TestReportStatusTerminal(t *testing.T) {
	assert.False(t, ReportStatusPending.IsTerminal())
	assert.True(t, ReportStatusResolved.IsTerminal())
	assert.True(t, ReportStatusDismissed.IsTerminal())

	_, err := ParseReportStatus("escalated")
	assert.Error(t, err)
}

func TestUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	require.NoError(t, err)
	assert.True(t, role.IsValid())
	assert.False(t, UserRole("root").IsValid())
}
