package reports

import (
	"context"
	"testing"

	"github.com/deorejayesh9663/UniTrade/internal/listings"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db/dbtest"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller    = pkgauth.Principal{UserID: uuid.New(), DisplayName: "Sam", Role: enums.UserRoleStudent}
	reporter  = pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleStudent}
	moderator = pkgauth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
)

func setup(t *testing.T) (Service, listings.Service) {
	t.Helper()
	conn := dbtest.Open(t)
	listingSvc, err := listings.NewService(listings.ServiceParams{Repo: listings.NewRepository(conn)})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Listings: listingSvc})
	require.NoError(t, err)
	return svc, listingSvc
}

func TestCreateAndListPending(t *testing.T) {
	svc, listingSvc := setup(t)
	ctx := context.Background()
	item, err := listingSvc.Create(ctx, seller, listings.CreateListingInput{Title: "Suspicious", Price: decimal.NewFromInt(1), Category: "Other"})
	require.NoError(t, err)

	report, err := svc.Create(ctx, reporter, CreateReportInput{ItemID: item.ID, Reason: " scam "})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusPending, report.Status)
	assert.Equal(t, "Suspicious", report.ItemTitle)
	assert.Equal(t, seller.UserID, report.SellerID)
	assert.Equal(t, "scam", report.Reason)

	_, err = svc.Create(ctx, reporter, CreateReportInput{ItemID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ListPending(ctx, reporter)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	pending, err := svc.ListPending(ctx, moderator)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, report.ID, pending[0].ID)
}

func TestResolveDeletesListingAndDismissKeepsIt(t *testing.T) {
	svc, listingSvc := setup(t)
	ctx := context.Background()
	bad, err := listingSvc.Create(ctx, seller, listings.CreateListingInput{Title: "Bad", Price: decimal.NewFromInt(1), Category: "Other"})
	require.NoError(t, err)
	fine, err := listingSvc.Create(ctx, seller, listings.CreateListingInput{Title: "Fine", Price: decimal.NewFromInt(1), Category: "Other"})
	require.NoError(t, err)

	r1, err := svc.Create(ctx, reporter, CreateReportInput{ItemID: bad.ID})
	require.NoError(t, err)
	r2, err := svc.Create(ctx, reporter, CreateReportInput{ItemID: fine.ID})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, moderator, r1.ID, enums.ReportStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	resolved, err := svc.Resolve(ctx, moderator, r1.ID, enums.ReportStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, moderator.UserID, *resolved.ResolvedBy)
	_, err = listingSvc.Get(ctx, bad.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Resolve(ctx, moderator, r1.ID, enums.ReportStatusDismissed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	dismissed, err := svc.Resolve(ctx, moderator, r2.ID, enums.ReportStatusDismissed)
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusDismissed, dismissed.Status)
	_, err = listingSvc.Get(ctx, fine.ID)
	assert.NoError(t, err)

	pending, err := svc.ListPending(ctx, moderator)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
