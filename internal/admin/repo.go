package admin

import (
	"context"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the singleton platform settings row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	if err := r.db.WithContext(ctx).First(&settings, "id = ?", models.PlatformSettingsID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert writes the fee unconditionally.
func (r *Repository) Upsert(ctx context.Context, fee decimal.Decimal, by uuid.UUID, at time.Time) error {
	row := models.PlatformSettings{
		ID:          models.PlatformSettingsID,
		PlatformFee: fee,
		UpdatedAt:   at,
		UpdatedBy:   &by,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"platform_fee", "updated_at", "updated_by"}),
		}).
		Create(&row).Error
}

// UpdateIfUnchanged writes the fee only when the stored updated_at equals
// expected. It reports whether the row was written.
func (r *Repository) UpdateIfUnchanged(ctx context.Context, fee decimal.Decimal, by uuid.UUID, at, expected time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PlatformSettings{}).
		Where("id = ? AND updated_at = ?", models.PlatformSettingsID, expected).
		Updates(map[string]any{
			"platform_fee": fee,
			"updated_at":   at,
			"updated_by":   by,
		})
	return res.RowsAffected == 1, res.Error
}
