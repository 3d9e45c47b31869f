package admin

import (
	"context"
	"fmt"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// PlatformStats is the admin dashboard aggregate.
// TotalRevenue is SoldItems multiplied by PlatformFee.
type PlatformStats struct {
	TotalUsers    int64           `json:"total_users"`
	TotalListings int64           `json:"total_listings"`
	SoldItems     int64           `json:"sold_items"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	ComputedAt    time.Time       `json:"computed_at"`
}

type Settings struct {
	PlatformFee decimal.Decimal `json:"platform_fee"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	UpdatedBy   *uuid.UUID      `json:"updated_by,omitempty"`
}

type UpdateFeeInput struct {
	Fee decimal.Decimal `json:"fee"`
	// ExpectedUpdatedAt turns the write into a compare-and-set against the
	// settings the caller last read.
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}

type CleanupResult struct {
	Cutoff time.Time `json:"cutoff"`
	Purged int       `json:"purged"`
}

type Service interface {
	ComputeStats(ctx context.Context, actor pkgauth.Principal) (PlatformStats, error)
	CurrentStats(ctx context.Context) (PlatformStats, error)
	Settings(ctx context.Context) (Settings, error)
	UpdateFee(ctx context.Context, actor pkgauth.Principal, input UpdateFeeInput) (Settings, error)
	RunCleanup(ctx context.Context, actor pkgauth.Principal, cutoff time.Time) (CleanupResult, error)
	PurgeSoldBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ListingStore is the slice of the listing store used for aggregation and purges.
type ListingStore interface {
	Counts(ctx context.Context) (int64, int64, error)
	ListSoldOlderThan(ctx context.Context, cutoff time.Time) ([]models.Listing, error)
	Purge(ctx context.Context, listing models.Listing) (bool, error)
}

type settingsRepository interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Upsert(ctx context.Context, fee decimal.Decimal, by uuid.UUID, at time.Time) error
	UpdateIfUnchanged(ctx context.Context, fee decimal.Decimal, by uuid.UUID, at, expected time.Time) (bool, error)
}

type ServiceParams struct {
	Repo          settingsRepository
	Users         UserCounter
	Listings      ListingStore
	DefaultFee    decimal.Decimal
	SoldRetention time.Duration
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo       settingsRepository
	users      UserCounter
	listings   ListingStore
	defaultFee decimal.Decimal
	retention  time.Duration
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user counter is required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing store is required")
	}
	if params.SoldRetention <= 0 {
		return nil, fmt.Errorf("sold retention must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		users:      params.Users,
		listings:   params.Listings,
		defaultFee: params.DefaultFee,
		retention:  params.SoldRetention,
		logg:       logg,
		now:        now,
	}, nil
}

func (s *service) ComputeStats(ctx context.Context, actor pkgauth.Principal) (PlatformStats, error) {
	if err := requireAdmin(actor); err != nil {
		return PlatformStats{}, err
	}
	return s.CurrentStats(ctx)
}

// CurrentStats computes the aggregate without an acting principal.
func (s *service) CurrentStats(ctx context.Context) (PlatformStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	total, sold, err := s.listings.Counts(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	return PlatformStats{
		TotalUsers:    users,
		TotalListings: total,
		SoldItems:     sold,
		TotalRevenue:  decimal.NewFromInt(sold).Mul(settings.PlatformFee),
		PlatformFee:   settings.PlatformFee,
		ComputedAt:    s.now().UTC(),
	}, nil
}

// Settings falls back to the configured default fee until an admin saves one.
func (s *service) Settings(ctx context.Context) (Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return Settings{PlatformFee: s.defaultFee}, nil
		}
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform settings")
	}
	updatedAt := row.UpdatedAt
	return Settings{PlatformFee: row.PlatformFee, UpdatedAt: &updatedAt, UpdatedBy: row.UpdatedBy}, nil
}

func (s *service) UpdateFee(ctx context.Context, actor pkgauth.Principal, input UpdateFeeInput) (Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return Settings{}, err
	}
	if input.Fee.IsNegative() {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "platform fee must not be negative")
	}
	fee := input.Fee.Round(2)
	at := s.now().UTC().Truncate(time.Microsecond)

	if input.ExpectedUpdatedAt == nil {
		if err := s.repo.Upsert(ctx, fee, actor.UserID, at); err != nil {
			return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save platform fee")
		}
	} else {
		current, err := s.Settings(ctx)
		if err != nil {
			return Settings{}, err
		}
		if current.UpdatedAt == nil {
			return Settings{}, pkgerrors.New(pkgerrors.CodeConflict, "platform settings have not been saved yet")
		}
		expected := input.ExpectedUpdatedAt.UTC().Truncate(time.Microsecond)
		written, err := s.repo.UpdateIfUnchanged(ctx, fee, actor.UserID, at, expected)
		if err != nil {
			return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save platform fee")
		}
		if !written {
			return Settings{}, pkgerrors.New(pkgerrors.CodeConflict, "platform settings changed since they were read")
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": actor.UserID.String(), "platform_fee": fee.String()})
	s.logg.Info(logCtx, "platform fee updated")
	return s.Settings(ctx)
}

// RunCleanup purges sold listings older than cutoff. A zero cutoff means the
// configured retention before now.
func (s *service) RunCleanup(ctx context.Context, actor pkgauth.Principal, cutoff time.Time) (CleanupResult, error) {
	if err := requireAdmin(actor); err != nil {
		return CleanupResult{}, err
	}
	if cutoff.IsZero() {
		cutoff = s.now().UTC().Add(-s.retention)
	}
	purged, err := s.PurgeSoldBefore(s.logg.WithUserID(ctx, actor.UserID.String()), cutoff)
	return CleanupResult{Cutoff: cutoff.UTC(), Purged: purged}, err
}

// PurgeSoldBefore keeps going past per-listing failures and returns them
// combined. Rows already removed by a concurrent purge are not counted.
func (s *service) PurgeSoldBefore(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.listings.ListSoldOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	var errs error
	for _, listing := range stale {
		deleted, err := s.listings.Purge(ctx, listing)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if deleted {
			purged++
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff.UTC().Format(time.RFC3339),
		"candidates": len(stale),
		"purged":     purged,
	})
	if errs != nil {
		s.logg.Error(logCtx, "sold listing cleanup finished with failures", errs)
	} else {
		s.logg.Info(logCtx, "sold listing cleanup finished")
	}
	return purged, errs
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
