package listings

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/deorejayesh9663/UniTrade/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultSellerName   = "Student"
	DefaultRelatedLimit = 4

	maxTitleLength       = 120
	maxDescriptionLength = 2000
	scanPageSize         = 50
)

var maxPrice = decimal.New(1, 10)

// ImageRemover deletes or schedules deletion of a listing image.
type ImageRemover interface {
	// Owns reports whether uri points at the platform blob store.
	Owns(uri string) bool
	Remove(ctx context.Context, uri string) error
}

// Service is the listing store.
type Service interface {
	Create(ctx context.Context, actor pkgauth.Principal, input CreateListingInput) (*models.Listing, error)
	Update(ctx context.Context, actor pkgauth.Principal, id uuid.UUID, input UpdateListingInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListActive(ctx context.Context, filter ListFilter) iter.Seq2[models.Listing, error]
	ListActivePage(ctx context.Context, filter ListFilter, cursor string, limit int) (pagination.Page[models.Listing], error)
	// ListAll pages through every listing, sold ones included. Admins only.
	ListAll(ctx context.Context, actor pkgauth.Principal, cursor string, limit int) (pagination.Page[models.Listing], error)
	MarkSold(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Listing, error)
	Delete(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) error
	ListSoldOlderThan(ctx context.Context, cutoff time.Time) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error)
	Related(ctx context.Context, id uuid.UUID, limit int) ([]models.Listing, error)
	// Purge removes a listing without an acting principal: image first, best
	// effort, then the record. It reports whether a row was deleted.
	Purge(ctx context.Context, listing models.Listing) (bool, error)
	Counts(ctx context.Context) (total int64, sold int64, err error)
}

type listingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Save(ctx context.Context, listing *models.Listing) error
	ListActive(ctx context.Context, f normalizedFilter, cursor *pagination.Cursor, limit int) ([]models.Listing, error)
	ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Listing, error)
	MarkSold(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListSoldBefore(ctx context.Context, cutoff time.Time) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error)
	ListRelated(ctx context.Context, excludeID uuid.UUID, category string, limit int) ([]models.Listing, error)
	Counts(ctx context.Context) (int64, int64, error)
}

type ServiceParams struct {
	Repo         listingRepository
	Images       ImageRemover
	DefaultImage string
	Logger       *logger.Logger
	Metrics      *metrics.MarketplaceMetrics
	Now          func() time.Time
}

type service struct {
	repo         listingRepository
	images       ImageRemover
	defaultImage string
	logg         *logger.Logger
	metrics      *metrics.MarketplaceMetrics
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listing repository is required")
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
		repo:         params.Repo,
		images:       params.Images,
		defaultImage: strings.TrimSpace(params.DefaultImage),
		logg:         logg,
		metrics:      params.Metrics,
		now:          now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Principal, input CreateListingInput) (*models.Listing, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to create a listing")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if err := validateText(title, description); err != nil {
		return nil, err
	}
	price, err := validatePrice(input.Price)
	if err != nil {
		return nil, err
	}
	category, err := enums.ParseListingCategory(input.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}

	image := strings.TrimSpace(input.Image)
	if image == "" {
		image = s.defaultImage
	}

	listing := &models.Listing{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Price:       price,
		Category:    category,
		Condition:   strings.TrimSpace(input.Condition),
		Location:    strings.TrimSpace(input.Location),
		ImageURL:    image,
		SellerID:    actor.UserID,
		SellerName:  actor.NameOr(DefaultSellerName),
		SellerEmail: actor.Email,
		College:     strings.TrimSpace(actor.College),
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	s.metrics.ListingTransition("created")
	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing created")
	return listing, nil
}

// Update edits a listing in place. Sold listings are frozen.
func (s *service) Update(ctx context.Context, actor pkgauth.Principal, id uuid.UUID, input UpdateListingInput) (*models.Listing, error) {
	listing, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if listing.Sold {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sold listings cannot be edited")
	}

	previousImage := listing.ImageURL
	if input.Title != nil {
		listing.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		listing.Description = strings.TrimSpace(*input.Description)
	}
	if err := validateText(listing.Title, listing.Description); err != nil {
		return nil, err
	}
	if input.Price != nil {
		price, err := validatePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		listing.Price = price
	}
	if input.Category != nil {
		category, err := enums.ParseListingCategory(*input.Category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		listing.Category = category
	}
	if input.Condition != nil {
		listing.Condition = strings.TrimSpace(*input.Condition)
	}
	if input.Location != nil {
		listing.Location = strings.TrimSpace(*input.Location)
	}
	if input.Image != nil {
		listing.ImageURL = strings.TrimSpace(*input.Image)
		if listing.ImageURL == "" {
			listing.ImageURL = s.defaultImage
		}
	}

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	if previousImage != listing.ImageURL {
		replaced := *listing
		replaced.ImageURL = previousImage
		s.removeImage(ctx, replaced, "update")
	}
	return listing, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

// ListActive walks every matching unsold listing newest first. Each range
// over the returned sequence starts again from the newest listing.
func (s *service) ListActive(ctx context.Context, filter ListFilter) iter.Seq2[models.Listing, error] {
	return func(yield func(models.Listing, error) bool) {
		f, err := filter.normalize()
		if err != nil {
			yield(models.Listing{}, err)
			return
		}

		var cursor *pagination.Cursor
		for {
			rows, err := s.repo.ListActive(ctx, f, cursor, scanPageSize+1)
			if err != nil {
				yield(models.Listing{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings"))
				return
			}
			page := pagination.Trim(rows, scanPageSize, listingCursor)
			for _, listing := range page.Items {
				if !yield(listing, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			last := page.Items[len(page.Items)-1]
			next := listingCursor(last)
			cursor = &next
		}
	}
}

func (s *service) ListActivePage(ctx context.Context, filter ListFilter, cursor string, limit int) (pagination.Page[models.Listing], error) {
	f, err := filter.normalize()
	if err != nil {
		return pagination.Page[models.Listing]{}, err
	}
	after, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[models.Listing]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit = pagination.NormalizeLimit(limit)

	rows, err := s.repo.ListActive(ctx, f, after, limit+1)
	if err != nil {
		return pagination.Page[models.Listing]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	return pagination.Trim(rows, limit, listingCursor), nil
}

func (s *service) ListAll(ctx context.Context, actor pkgauth.Principal, cursor string, limit int) (pagination.Page[models.Listing], error) {
	if !actor.IsAuthenticated() {
		return pagination.Page[models.Listing]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return pagination.Page[models.Listing]{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	after, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[models.Listing]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit = pagination.NormalizeLimit(limit)

	rows, err := s.repo.ListAll(ctx, after, limit+1)
	if err != nil {
		return pagination.Page[models.Listing]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all listings")
	}
	return pagination.Trim(rows, limit, listingCursor), nil
}

// MarkSold is idempotent: a listing that is already sold keeps its original soldAt.
func (s *service) MarkSold(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if listing.Sold {
		return listing, nil
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	if at.Before(listing.CreatedAt) {
		at = listing.CreatedAt.UTC()
	}
	changed, err := s.repo.MarkSold(ctx, id, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark listing sold")
	}
	if changed {
		s.metrics.ListingTransition("sold")
		s.logg.Info(s.logg.WithListingID(ctx, id.String()), "listing marked sold")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) error {
	listing, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	s.metrics.ListingTransition("deleted")
	s.removeImage(ctx, *listing, "delete")
	return nil
}

// removeImage deletes the listing image when the platform owns it.
// Failures are logged and counted, never returned.
func (s *service) removeImage(ctx context.Context, listing models.Listing, path string) {
	if s.images == nil || listing.ImageURL == "" || !s.images.Owns(listing.ImageURL) {
		return
	}
	if err := s.images.Remove(ctx, listing.ImageURL); err != nil {
		s.metrics.ImageRemovalFailed(path)
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"listing_id": listing.ID.String(),
			"image":      listing.ImageURL,
			"path":       path,
		})
		s.logg.Error(logCtx, "listing image removal failed", err)
	}
}

func (s *service) Purge(ctx context.Context, listing models.Listing) (bool, error) {
	s.removeImage(ctx, listing, "purge")
	deleted, err := s.repo.Delete(ctx, listing.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("purge listing %s", listing.ID))
	}
	if deleted {
		s.metrics.ListingTransition("purged")
	}
	return deleted, nil
}

func (s *service) ListSoldOlderThan(ctx context.Context, cutoff time.Time) ([]models.Listing, error) {
	rows, err := s.repo.ListSoldBefore(ctx, cutoff.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sold listings")
	}
	return rows, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller listings")
	}
	return rows, nil
}

func (s *service) Related(ctx context.Context, id uuid.UUID, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRelated(ctx, id, string(listing.Category), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list related listings")
	}
	return rows, nil
}

func (s *service) Counts(ctx context.Context) (int64, int64, error) {
	total, sold, err := s.repo.Counts(ctx)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings")
	}
	return total, sold, nil
}

func (s *service) loadManaged(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Listing, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(listing.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller or an admin can change this listing")
	}
	return listing, nil
}

func listingCursor(l models.Listing) pagination.Cursor {
	return pagination.Cursor{CreatedAt: l.CreatedAt.UTC(), ID: l.ID}
}

func validateText(title, description string) error {
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if len([]rune(description)) > maxDescriptionLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	return nil
}

// validatePrice bounds the stored value, so rounding to cents comes first.
func validatePrice(price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	rounded := price.Round(2)
	if rounded.GreaterThanOrEqual(maxPrice) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price is too large")
	}
	return rounded, nil
}
