package listings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db/dbtest"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultImage = "https://cdn.example/default.png"

type fakeImages struct {
	prefix  string
	removed []string
	err     error
}

func (f *fakeImages) Owns(uri string) bool {
	return len(uri) >= len(f.prefix) && uri[:len(f.prefix)] == f.prefix
}

func (f *fakeImages) Remove(_ context.Context, uri string) error {
	f.removed = append(f.removed, uri)
	return f.err
}

type fixture struct {
	svc     Service
	repo    *Repository
	images  *fakeImages
	metrics *metrics.MarketplaceMetrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	images := &fakeImages{prefix: "https://storage.googleapis.com/unitrade/"}
	m := metrics.NewMarketplaceMetrics(prometheus.NewRegistry())
	svc, err := NewService(ServiceParams{Repo: repo, Images: images, DefaultImage: defaultImage, Metrics: m})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, images: images, metrics: m}
}

func student(name, college string) pkgauth.Principal {
	return pkgauth.Principal{UserID: uuid.New(), Email: name + "@campus.edu", DisplayName: name, College: college, Role: enums.UserRoleStudent}
}

func admin() pkgauth.Principal {
	return pkgauth.Principal{UserID: uuid.New(), Email: "dean@campus.edu", Role: enums.UserRoleAdmin}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *Repository, minutes int, mutate func(*models.Listing)) models.Listing {
	t.Helper()
	l := models.Listing{
		ID:         uuid.New(),
		Title:      fmt.Sprintf("Item %d", minutes),
		Price:      decimal.NewFromInt(10),
		Category:   enums.ListingCategory("Books"),
		SellerID:   uuid.New(),
		SellerName: "Seller",
		College:    "North",
		CreatedAt:  base.Add(time.Duration(minutes) * time.Minute),
	}
	if mutate != nil {
		mutate(&l)
	}
	require.NoError(t, repo.Create(context.Background(), &l))
	return l
}

func collect(t *testing.T, svc Service, f ListFilter) []models.Listing {
	t.Helper()
	var out []models.Listing
	for l, err := range svc.ListActive(context.Background(), f) {
		require.NoError(t, err)
		out = append(out, l)
	}
	return out
}

func TestCreateStampsSellerAndDefaults(t *testing.T) {
	fx := newFixture(t)
	actor := student("", "North")

	listing, err := fx.svc.Create(context.Background(), actor, CreateListingInput{
		Title:    "  Calculus textbook ",
		Price:    decimal.RequireFromString("25.499"),
		Category: "Books",
	})
	require.NoError(t, err)
	assert.Equal(t, "Calculus textbook", listing.Title)
	assert.Equal(t, DefaultSellerName, listing.SellerName)
	assert.Equal(t, actor.UserID, listing.SellerID)
	assert.Equal(t, "North", listing.College)
	assert.Equal(t, defaultImage, listing.ImageURL)
	assert.True(t, listing.Price.Equal(decimal.RequireFromString("25.5")))
	assert.False(t, listing.Sold)

	stored, err := fx.svc.Get(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.Title, stored.Title)
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	actor := student("ana", "North")

	cases := map[string]CreateListingInput{
		"blank title":    {Title: "  ", Price: decimal.NewFromInt(1), Category: "Books"},
		"negative price": {Title: "Lamp", Price: decimal.NewFromInt(-1), Category: "Books"},
		"bad category":   {Title: "Lamp", Price: decimal.NewFromInt(1), Category: "Boats"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.Create(ctx, actor, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := fx.svc.Create(ctx, pkgauth.Principal{}, CreateListingInput{Title: "Lamp", Category: "Books"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestGetMissingListing(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListActiveOrdersNewestFirstAndSkipsSold(t *testing.T) {
	fx := newFixture(t)
	older := seed(t, fx.repo, 1, nil)
	newer := seed(t, fx.repo, 2, nil)
	soldAt := base.Add(time.Hour)
	seed(t, fx.repo, 3, func(l *models.Listing) { l.Sold = true; l.SoldAt = &soldAt })

	got := collect(t, fx.svc, ListFilter{Scope: enums.ListingScopeGlobal})
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestListActiveFilters(t *testing.T) {
	fx := newFixture(t)
	lamp := seed(t, fx.repo, 1, func(l *models.Listing) {
		l.Title = "Desk lamp"
		l.Category = "Electronics"
		l.Price = decimal.NewFromInt(15)
	})
	seed(t, fx.repo, 2, func(l *models.Listing) {
		l.Title = "Chair"
		l.Description = "Pairs well with a LAMP"
		l.Category = "Furniture"
		l.Price = decimal.NewFromInt(40)
		l.College = "South"
	})
	seed(t, fx.repo, 3, func(l *models.Listing) { l.Title = "100%_cotton shirt"; l.Category = "Clothing" })

	ids := func(f ListFilter) []uuid.UUID {
		var out []uuid.UUID
		for _, l := range collect(t, fx.svc, f) {
			out = append(out, l.ID)
		}
		return out
	}

	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeGlobal, Search: "lamp"}), 2)
	assert.Equal(t, []uuid.UUID{lamp.ID}, ids(ListFilter{Scope: enums.ListingScopeGlobal, Search: "lamp", Category: "Electronics"}))
	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeGlobal, Category: "All"}), 3)

	limit := decimal.NewFromInt(20)
	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeGlobal, Search: "lamp", MaxPrice: &limit}), 1)

	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeCollege, College: "North"}), 2)
	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeCollege}), 3, "no campus browses globally")

	assert.Len(t, ids(ListFilter{Scope: enums.ListingScopeGlobal, Search: "%_"}), 1, "wildcards match literally")
}

func TestListActiveRejectsInvalidFilter(t *testing.T) {
	fx := newFixture(t)
	calls := 0
	for _, err := range fx.svc.ListActive(context.Background(), ListFilter{Category: "Boats"}) {
		calls++
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
	assert.Equal(t, 1, calls)
}

func TestListActiveWalksEveryPageAndRestarts(t *testing.T) {
	fx := newFixture(t)
	total := scanPageSize*2 + 7
	for i := 0; i < total; i++ {
		seed(t, fx.repo, i, nil)
	}

	seq := fx.svc.ListActive(context.Background(), ListFilter{Scope: enums.ListingScopeGlobal})
	first := 0
	var prev *models.Listing
	for l, err := range seq {
		require.NoError(t, err)
		if prev != nil {
			assert.True(t, l.CreatedAt.Before(prev.CreatedAt))
		}
		cur := l
		prev = &cur
		first++
	}
	assert.Equal(t, total, first)

	second := 0
	for range seq {
		second++
		if second == 3 {
			break
		}
	}
	assert.Equal(t, 3, second)
}

func TestListActivePageCursor(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < 5; i++ {
		seed(t, fx.repo, i, nil)
	}
	ctx := context.Background()
	f := ListFilter{Scope: enums.ListingScopeGlobal}

	page, err := fx.svc.ListActivePage(ctx, f, "", 3)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := fx.svc.ListActivePage(ctx, f, page.NextCursor, 3)
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)
	assert.Empty(t, rest.NextCursor)
	assert.True(t, rest.Items[0].CreatedAt.Before(page.Items[2].CreatedAt))

	_, err = fx.svc.ListActivePage(ctx, f, "not-a-cursor!", 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkSoldIsIdempotentAndGuarded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := student("sam", "North")
	listing := seed(t, fx.repo, 0, func(l *models.Listing) { l.SellerID = seller.UserID })

	_, err := fx.svc.MarkSold(ctx, student("eve", "North"), listing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	sold, err := fx.svc.MarkSold(ctx, seller, listing.ID)
	require.NoError(t, err)
	require.True(t, sold.Sold)
	require.NotNil(t, sold.SoldAt)
	assert.False(t, sold.SoldAt.Before(sold.CreatedAt))

	again, err := fx.svc.MarkSold(ctx, admin(), listing.ID)
	require.NoError(t, err)
	assert.True(t, sold.SoldAt.Equal(*again.SoldAt))

	assert.Empty(t, collect(t, fx.svc, ListFilter{Scope: enums.ListingScopeGlobal}))
}

func TestDeleteRemovesOwnedImagesOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := student("sam", "North")
	owned := seed(t, fx.repo, 0, func(l *models.Listing) {
		l.SellerID = seller.UserID
		l.ImageURL = "https://storage.googleapis.com/unitrade/listings/a.png"
	})
	foreign := seed(t, fx.repo, 1, func(l *models.Listing) {
		l.SellerID = seller.UserID
		l.ImageURL = "https://images.example/b.png"
	})

	err := fx.svc.Delete(ctx, student("eve", "North"), owned.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, fx.svc.Delete(ctx, seller, owned.ID))
	require.NoError(t, fx.svc.Delete(ctx, admin(), foreign.ID))
	assert.Equal(t, []string{owned.ImageURL}, fx.images.removed)

	_, err = fx.svc.Get(ctx, owned.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteSwallowsImageFailures(t *testing.T) {
	fx := newFixture(t)
	fx.images.err = errors.New("bucket offline")
	seller := student("sam", "North")
	listing := seed(t, fx.repo, 0, func(l *models.Listing) {
		l.SellerID = seller.UserID
		l.ImageURL = "https://storage.googleapis.com/unitrade/listings/a.png"
	})

	require.NoError(t, fx.svc.Delete(context.Background(), seller, listing.ID))
	assert.Len(t, fx.images.removed, 1)
}

func TestUpdateReplacesImageAndFreezesSold(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := student("sam", "North")
	listing := seed(t, fx.repo, 0, func(l *models.Listing) {
		l.SellerID = seller.UserID
		l.ImageURL = "https://storage.googleapis.com/unitrade/listings/old.png"
	})

	title := "Updated"
	image := "https://storage.googleapis.com/unitrade/listings/new.png"
	price := decimal.NewFromInt(12)
	updated, err := fx.svc.Update(ctx, seller, listing.ID, UpdateListingInput{Title: &title, Image: &image, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, []string{listing.ImageURL}, fx.images.removed)

	stored, err := fx.svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(price))

	_, err = fx.svc.MarkSold(ctx, seller, listing.ID)
	require.NoError(t, err)
	_, err = fx.svc.Update(ctx, seller, listing.ID, UpdateListingInput{Title: &title})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestSoldOlderThanSellerAndRelated(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sellerID := uuid.New()
	oldSold := base.Add(-48 * time.Hour)
	recentSold := base.Add(time.Hour)

	a := seed(t, fx.repo, -5000, func(l *models.Listing) { l.SellerID = sellerID; l.Sold = true; l.SoldAt = &oldSold })
	seed(t, fx.repo, 1, func(l *models.Listing) { l.SellerID = sellerID; l.Sold = true; l.SoldAt = &recentSold })
	c := seed(t, fx.repo, 2, func(l *models.Listing) { l.SellerID = sellerID })
	d := seed(t, fx.repo, 3, nil)
	seed(t, fx.repo, 4, func(l *models.Listing) { l.Category = "Clothing" })

	old, err := fx.svc.ListSoldOlderThan(ctx, base)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, a.ID, old[0].ID)

	mine, err := fx.svc.ListBySeller(ctx, sellerID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	related, err := fx.svc.Related(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, d.ID, related[0].ID)

	total, sold, err := fx.svc.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.EqualValues(t, 2, sold)
}

func TestListAllIncludesSoldForAdmins(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	soldAt := base.Add(time.Hour)
	first := seed(t, fx.repo, 1, func(l *models.Listing) { l.College = "South" })
	sold := seed(t, fx.repo, 2, func(l *models.Listing) { l.Sold = true; l.SoldAt = &soldAt })
	newest := seed(t, fx.repo, 3, nil)

	page, err := fx.svc.ListAll(ctx, admin(), "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newest.ID, page.Items[0].ID)
	assert.Equal(t, sold.ID, page.Items[1].ID)
	assert.True(t, page.Items[1].Sold)
	require.NotEmpty(t, page.NextCursor)

	rest, err := fx.svc.ListAll(ctx, admin(), page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, first.ID, rest.Items[0].ID)
	assert.Empty(t, rest.NextCursor)

	_, err = fx.svc.ListAll(ctx, student("ana", "North"), "", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = fx.svc.ListAll(ctx, pkgauth.Principal{}, "", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = fx.svc.ListAll(ctx, admin(), "!!", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPriceBoundAppliesToRoundedValue(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	actor := student("ana", "North")

	_, err := fx.svc.Create(ctx, actor, CreateListingInput{Title: "Car", Category: "Books", Price: decimal.RequireFromString("9999999999.995")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "rounds up to the bound: %v", err)

	listing, err := fx.svc.Create(ctx, actor, CreateListingInput{Title: "Car", Category: "Books", Price: decimal.RequireFromString("9999999999.994")})
	require.NoError(t, err)
	assert.True(t, listing.Price.Equal(decimal.RequireFromString("9999999999.99")))
}

func TestPurgeRemovesImageThenRecord(t *testing.T) {
	fx := newFixture(t)
	soldAt := base.Add(time.Hour)
	listing := seed(t, fx.repo, 0, func(l *models.Listing) {
		l.Sold = true
		l.SoldAt = &soldAt
		l.ImageURL = "https://storage.googleapis.com/unitrade/listings/p.png"
	})

	deleted, err := fx.svc.Purge(context.Background(), listing)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{listing.ImageURL}, fx.images.removed)
	_, err = fx.svc.Get(context.Background(), listing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	deleted, err = fx.svc.Purge(context.Background(), listing)
	require.NoError(t, err, "purging twice is harmless")
	assert.False(t, deleted, "a missing row is not reported as deleted")
}
