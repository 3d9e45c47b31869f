package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/google/uuid"
)

const maxReasonLength = 500

type CreateReportInput struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
	Reason string    `json:"reason" validate:"max=500"`
}

type ResolveInput struct {
	Status string `json:"status" validate:"required,oneof=resolved dismissed"`
}

type Service interface {
	Create(ctx context.Context, actor pkgauth.Principal, input CreateReportInput) (*models.Report, error)
	ListPending(ctx context.Context, actor pkgauth.Principal) ([]models.Report, error)
	// Resolve closes a pending report. Resolving removes the listing.
	Resolve(ctx context.Context, actor pkgauth.Principal, id uuid.UUID, status enums.ReportStatus) (*models.Report, error)
}

type ListingStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Delete(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) error
}

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListByStatus(ctx context.Context, status enums.ReportStatus) ([]models.Report, error)
	Close(ctx context.Context, id uuid.UUID, status enums.ReportStatus, by uuid.UUID, at time.Time) (bool, error)
}

type ServiceParams struct {
	Repo     reportRepository
	Listings ListingStore
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     reportRepository
	listings ListingStore
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("report repository is required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, listings: params.Listings, logg: logg, now: now}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Principal, input CreateReportInput) (*models.Report, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to report a listing")
	}
	reason := strings.TrimSpace(input.Reason)
	if len([]rune(reason)) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}
	item, err := s.listings.Get(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:         uuid.New(),
		ItemID:     item.ID,
		ItemTitle:  item.Title,
		ReportedBy: actor.UserID,
		SellerID:   item.SellerID,
		Reason:     reason,
		Status:     enums.ReportStatusPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create report")
	}
	s.logg.Info(s.logg.WithListingID(ctx, item.ID.String()), "listing reported")
	return report, nil
}

func (s *service) ListPending(ctx context.Context, actor pkgauth.Principal) ([]models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStatus(ctx, enums.ReportStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reports")
	}
	return rows, nil
}

func (s *service) Resolve(ctx context.Context, actor pkgauth.Principal, id uuid.UUID, status enums.ReportStatus) (*models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be resolved or dismissed")
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load report")
	}
	if report.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "report already handled")
	}

	if status == enums.ReportStatusResolved {
		if err := s.listings.Delete(ctx, actor, report.ItemID); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}

	closed, err := s.repo.Close(ctx, id, status, actor.UserID, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close report")
	}
	if !closed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "report already handled")
	}
	return s.repo.FindByID(ctx, id)
}

func requireAdmin(actor pkgauth.Principal) error {
	if !actor.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return nil
}
