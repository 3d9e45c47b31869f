package listings

import (
	"context"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates listing persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// Save writes the seller-editable columns of listing.
func (r *Repository) Save(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]any{
			"title":       listing.Title,
			"description": listing.Description,
			"price":       listing.Price,
			"category":    listing.Category,
			"condition":   listing.Condition,
			"location":    listing.Location,
			"image_url":   listing.ImageURL,
		}).Error
}

// ListActive returns up to limit unsold listings after cursor, newest first.
func (r *Repository) ListActive(ctx context.Context, f normalizedFilter, cursor *pagination.Cursor, limit int) ([]models.Listing, error) {
	q := r.db.WithContext(ctx).Model(&models.Listing{}).Where("sold = ?", false)

	if f.category != "" {
		q = q.Where("category = ?", f.category)
	}
	if f.search != "" {
		pattern := likePattern(f.search)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if f.maxPrice != nil {
		q = q.Where("price <= ?", *f.maxPrice)
	}
	if f.college != "" {
		q = q.Where("college = ?", f.college)
	}
	if cursor != nil {
		at := cursor.CreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, cursor.ID)
	}

	var rows []models.Listing
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListAll returns up to limit listings after cursor, sold or not, newest first.
func (r *Repository) ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Listing, error) {
	q := r.db.WithContext(ctx).Model(&models.Listing{})
	if cursor != nil {
		at := cursor.CreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, cursor.ID)
	}

	var rows []models.Listing
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// MarkSold flips an unsold listing to sold. It reports false when the
// listing was already sold or does not exist.
func (r *Repository) MarkSold(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND sold = ?", id, false).
		Updates(map[string]any{"sold": true, "sold_at": at})
	return res.RowsAffected == 1, res.Error
}

// Delete removes the listing and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{})
	return res.RowsAffected > 0, res.Error
}

// ListSoldBefore returns sold listings with sold_at strictly before cutoff, oldest first.
func (r *Repository) ListSoldBefore(ctx context.Context, cutoff time.Time) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("sold = ? AND sold_at < ?", true, cutoff).
		Order("sold_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListRelated returns unsold listings in category other than excludeID.
func (r *Repository) ListRelated(ctx context.Context, excludeID uuid.UUID, category string, limit int) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("sold = ? AND category = ? AND id <> ?", false, category, excludeID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Counts returns the total number of listings and how many are sold.
func (r *Repository) Counts(ctx context.Context) (total int64, sold int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.Listing{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(&models.Listing{}).Where("sold = ?", true).Count(&sold).Error; err != nil {
		return 0, 0, err
	}
	return total, sold, nil
}
