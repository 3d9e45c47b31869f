package conversations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deorejayesh9663/UniTrade/internal/listings"
	"github.com/deorejayesh9663/UniTrade/internal/live"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db/dbtest"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      Service
	listings listings.Service
	hub      *live.Hub
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	listingSvc, err := listings.NewService(listings.ServiceParams{Repo: listings.NewRepository(conn)})
	require.NoError(t, err)
	hub := live.NewHub()
	svc, err := NewService(ServiceParams{DB: conn, Listings: listingSvc, Broker: hub})
	require.NoError(t, err)
	return fixture{db: conn, svc: svc, listings: listingSvc, hub: hub}
}

func principal(name string) pkgauth.Principal {
	return pkgauth.Principal{UserID: uuid.New(), DisplayName: name, Role: enums.UserRoleStudent}
}

func (fx fixture) listing(t *testing.T, seller pkgauth.Principal, title string) *models.Listing {
	t.Helper()
	l, err := fx.listings.Create(context.Background(), seller, listings.CreateListingInput{
		Title:    title,
		Price:    decimal.NewFromInt(20),
		Category: "Books",
		Image:    "https://img.example/" + title + ".png",
	})
	require.NoError(t, err)
	return l
}

func TestFindOrCreateSnapshotsAndReuses(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := principal("Sam")
	buyer := principal("")
	item := fx.listing(t, seller, "lamp")

	conv, err := fx.svc.FindOrCreate(ctx, buyer, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "lamp", conv.ItemTitle)
	assert.Equal(t, item.ImageURL, conv.ItemImage)
	assert.True(t, conv.ItemPrice.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, DefaultBuyerName, conv.BuyerName)
	assert.Equal(t, "Sam", conv.SellerName)
	assert.Equal(t, seller.UserID, conv.SellerID)

	again, err := fx.svc.FindOrCreate(ctx, buyer, item.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}

func TestFindOrCreateRejectsSelfAndMissingItems(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := principal("Sam")
	item := fx.listing(t, seller, "lamp")

	_, err := fx.svc.FindOrCreate(ctx, seller, item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSelfMessage))

	_, err = fx.svc.FindOrCreate(ctx, principal("Bo"), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = fx.svc.FindOrCreate(ctx, pkgauth.Principal{}, item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestFindOrCreateConcurrentCallersConverge(t *testing.T) {
	fx := newFixture(t)
	item := fx.listing(t, principal("Sam"), "lamp")
	buyer := principal("Bo")

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := fx.svc.FindOrCreate(context.Background(), buyer, item.ID)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, fx.db.Model(&models.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetChecksParticipantsAndAvailability(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seller := principal("Sam")
	buyer := principal("Bo")
	item := fx.listing(t, seller, "lamp")
	conv, err := fx.svc.FindOrCreate(ctx, buyer, item.ID)
	require.NoError(t, err)

	view, err := fx.svc.Get(ctx, seller, conv.ID)
	require.NoError(t, err)
	assert.True(t, view.ItemAvailable)

	_, err = fx.svc.Get(ctx, principal("Eve"), conv.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = fx.listings.MarkSold(ctx, seller, item.ID)
	require.NoError(t, err)
	view, err = fx.svc.Get(ctx, admin, conv.ID)
	require.NoError(t, err)
	assert.False(t, view.ItemAvailable)

	require.NoError(t, fx.listings.Delete(ctx, seller, item.ID))
	view, err = fx.svc.Get(ctx, buyer, conv.ID)
	require.NoError(t, err)
	assert.False(t, view.ItemAvailable)
	assert.Equal(t, "lamp", view.ItemTitle)
}

func TestTouchMissingConversation(t *testing.T) {
	fx := newFixture(t)
	err := fx.db.Transaction(func(tx *gorm.DB) error {
		_, err := fx.svc.Touch(context.Background(), tx, uuid.New(), time.Now())
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListForUserMergesRolesByRecency(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	me := principal("Me")
	other := principal("Other")

	mine := fx.listing(t, me, "desk")
	theirs := fx.listing(t, other, "chair")

	selling, err := fx.svc.FindOrCreate(ctx, other, mine.ID)
	require.NoError(t, err)
	buying, err := fx.svc.FindOrCreate(ctx, me, theirs.ID)
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Minute).Truncate(time.Microsecond)
	require.NoError(t, fx.db.Transaction(func(tx *gorm.DB) error {
		_, err := fx.svc.Touch(ctx, tx, selling.ID, later)
		return err
	}))

	inbox, err := fx.svc.ListForUser(ctx, me.UserID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, selling.ID, inbox[0].ID)
	assert.Equal(t, buying.ID, inbox[1].ID)
}

func TestMergerUpsertsAndSorts(t *testing.T) {
	now := time.Now()
	a := models.Conversation{ID: uuid.New(), UpdatedAt: now}
	b := models.Conversation{ID: uuid.New(), UpdatedAt: now.Add(time.Second)}

	m := NewMerger()
	got := m.Apply([]models.Conversation{a})
	require.Len(t, got, 1)

	got = m.Apply([]models.Conversation{b})
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)

	a.UpdatedAt = now.Add(time.Hour)
	got = m.Apply([]models.Conversation{a})
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestSubscribeForUserDeliversMergedSnapshots(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	me := principal("Me")
	other := principal("Other")
	mine := fx.listing(t, me, "desk")
	theirs := fx.listing(t, other, "chair")

	feed, err := fx.svc.SubscribeForUser(ctx, me)
	require.NoError(t, err)
	defer feed.Close()

	waitFor(t, feed, func(s []models.Conversation) bool { return len(s) == 0 })

	_, err = fx.svc.FindOrCreate(ctx, other, mine.ID)
	require.NoError(t, err)
	waitFor(t, feed, func(s []models.Conversation) bool { return len(s) == 1 })

	_, err = fx.svc.FindOrCreate(ctx, me, theirs.ID)
	require.NoError(t, err)
	waitFor(t, feed, func(s []models.Conversation) bool { return len(s) == 2 })

	feed.Close()
	feed.Close()
	_, open := <-feed.C()
	assert.False(t, open)
	assert.Zero(t, fx.hub.Len(live.BuyerInboxTopic(me.UserID)))
}

func waitFor(t *testing.T, feed *Feed, cond func([]models.Conversation) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snapshot, ok := <-feed.C():
			require.True(t, ok, "feed closed")
			if cond(snapshot) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for inbox snapshot")
		}
	}
}
