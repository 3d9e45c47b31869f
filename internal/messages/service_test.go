package messages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deorejayesh9663/UniTrade/internal/conversations"
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
)

type fixture struct {
	svc    Service
	hub    *live.Hub
	conv   *models.Conversation
	buyer  pkgauth.Principal
	seller pkgauth.Principal
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func newFixture(t *testing.T, params ServiceParams) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	hub := live.NewHub()
	listingSvc, err := listings.NewService(listings.ServiceParams{Repo: listings.NewRepository(conn)})
	require.NoError(t, err)
	convSvc, err := conversations.NewService(conversations.ServiceParams{DB: conn, Listings: listingSvc, Broker: hub})
	require.NoError(t, err)

	seller := pkgauth.Principal{UserID: uuid.New(), DisplayName: "Sam", Role: enums.UserRoleStudent}
	buyer := pkgauth.Principal{UserID: uuid.New(), DisplayName: "Bo", Role: enums.UserRoleStudent}
	ctx := context.Background()
	item, err := listingSvc.Create(ctx, seller, listings.CreateListingInput{Title: "lamp", Price: decimal.NewFromInt(5), Category: "Other"})
	require.NoError(t, err)
	conv, err := convSvc.FindOrCreate(ctx, buyer, item.ID)
	require.NoError(t, err)

	params.DB = conn
	params.Conversations = convSvc
	params.Broker = hub
	svc, err := NewService(params)
	require.NoError(t, err)
	return fixture{svc: svc, hub: hub, conv: conv, buyer: buyer, seller: seller}
}

func TestAppendValidatesText(t *testing.T) {
	fx := newFixture(t, ServiceParams{})
	ctx := context.Background()

	_, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "   \n\t")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.Append(ctx, fx.buyer, fx.conv.ID, strings.Repeat("é", MaxTextLength+1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	msg, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, strings.Repeat("é", MaxTextLength))
	require.NoError(t, err)
	assert.Len(t, msg.ID, 26)
}

func TestAppendRequiresParticipant(t *testing.T) {
	fx := newFixture(t, ServiceParams{})
	ctx := context.Background()

	_, err := fx.svc.Append(ctx, pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleStudent}, fx.conv.ID, "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = fx.svc.Append(ctx, admin, fx.conv.ID, "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = fx.svc.Append(ctx, fx.buyer, uuid.New(), "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	msgs, err := fx.svc.List(ctx, admin, fx.conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAppendTimestampsStrictlyIncrease(t *testing.T) {
	frozen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	fx := newFixture(t, ServiceParams{Now: func() time.Time { return frozen }})
	ctx := context.Background()

	first, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "is it available?")
	require.NoError(t, err)
	second, err := fx.svc.Append(ctx, fx.seller, fx.conv.ID, "yes")
	require.NoError(t, err)
	third, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "great")
	require.NoError(t, err)

	assert.True(t, first.CreatedAt.Equal(frozen))
	assert.True(t, second.CreatedAt.Equal(frozen.Add(time.Microsecond)))
	assert.True(t, third.CreatedAt.Equal(frozen.Add(2*time.Microsecond)))

	msgs, err := fx.svc.List(ctx, fx.seller, fx.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestConcurrentAppendsKeepOrder(t *testing.T) {
	fx := newFixture(t, ServiceParams{})
	const senders = 10

	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := fx.buyer
			if i%2 == 0 {
				actor = fx.seller
			}
			_, err := fx.svc.Append(context.Background(), actor, fx.conv.ID, "ping")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := fx.svc.List(context.Background(), fx.buyer, fx.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, senders)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt), "message %d not after %d", i, i-1)
	}
}

func TestAppendRateLimited(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	fx := newFixture(t, ServiceParams{Limiter: limiter, RateLimit: RateLimit{Limit: 2, Window: time.Minute}})
	ctx := context.Background()

	for range 2 {
		_, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "hi")
		require.NoError(t, err)
	}
	_, err := fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))

	_, err = fx.svc.Append(ctx, fx.seller, fx.conv.ID, "hello")
	assert.NoError(t, err, "limit is per sender")

	limiter.err = errors.New("redis down")
	_, err = fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "still here")
	assert.NoError(t, err, "limiter outages fail open")
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	fx := newFixture(t, ServiceParams{})
	ctx := context.Background()

	_, err := fx.svc.Subscribe(ctx, pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleStudent}, fx.conv.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	sub, err := fx.svc.Subscribe(ctx, fx.seller, fx.conv.ID)
	require.NoError(t, err)
	defer sub.Close()

	waitFor(t, sub, 0)
	_, err = fx.svc.Append(ctx, fx.buyer, fx.conv.ID, "hello")
	require.NoError(t, err)
	snapshot := waitFor(t, sub, 1)
	assert.Equal(t, "hello", snapshot[0].Text)

	sub.Close()
	sub.Close()
	_, open := <-sub.C()
	assert.False(t, open)
	assert.Zero(t, fx.hub.Len(live.ConversationTopic(fx.conv.ID)))
}

func TestAppendTouchesInbox(t *testing.T) {
	fx := newFixture(t, ServiceParams{})
	listener := fx.hub.Subscribe(live.SellerInboxTopic(fx.seller.UserID))
	defer listener.Close()

	_, err := fx.svc.Append(context.Background(), fx.buyer, fx.conv.ID, "hi")
	require.NoError(t, err)

	select {
	case <-listener.C():
	case <-time.After(time.Second):
		t.Fatal("seller inbox was not notified")
	}
}

func waitFor(t *testing.T, sub *Subscription, n int) []models.Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snapshot, ok := <-sub.C():
			require.True(t, ok, "subscription closed")
			if len(snapshot) == n {
				return snapshot
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d messages", n)
			return nil
		}
	}
}
