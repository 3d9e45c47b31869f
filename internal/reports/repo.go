package reports

import (
	"context"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status enums.ReportStatus) ([]models.Report, error) {
	rows := []models.Report{}
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Close moves a pending report to status. It reports false when the report
// was already handled.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, status enums.ReportStatus, by uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND status = ?", id, enums.ReportStatusPending).
		Updates(map[string]any{
			"status":      status,
			"resolved_by": by,
			"resolved_at": at,
		})
	return res.RowsAffected == 1, res.Error
}
