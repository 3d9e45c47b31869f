package reviews

import (
	"context"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Review, error) {
	rows := []models.Review{}
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

type summaryRow struct {
	Count int64
	Total int64
}

// Summary returns the review count and the sum of ratings for sellerID.
func (r *Repository) Summary(ctx context.Context, sellerID uuid.UUID) (int64, int64, error) {
	var row summaryRow
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS total").
		Where("seller_id = ?", sellerID).
		Scan(&row).Error
	return row.Count, row.Total, err
}
