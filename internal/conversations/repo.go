package conversations

import (
	"context"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateIfAbsent inserts conv unless a thread already exists for the same
// item and buyer. It reports whether a row was written.
func (r *Repository) CreateIfAbsent(ctx context.Context, conv *models.Conversation) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "buyer_id"}},
			DoNothing: true,
		}).
		Create(conv)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) FindByItemAndBuyer(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND buyer_id = ?", itemID, buyerID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// Touch sets updated_at. On Postgres the update holds the row lock until the
// surrounding transaction ends.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Conversation, error) {
	return r.listBy(ctx, "buyer_id", buyerID)
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Conversation, error) {
	return r.listBy(ctx, "seller_id", sellerID)
}

func (r *Repository) listBy(ctx context.Context, column string, userID uuid.UUID) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: userID}).
		Order("updated_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}
