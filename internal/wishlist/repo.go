package wishlist

import (
	"context"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts the entry and ignores duplicates.
func (r *Repository) Add(ctx context.Context, entry *models.WishlistEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoNothing: true,
		}).
		Create(entry).Error
}

// Remove deletes the user's entry for itemID and reports whether one existed.
func (r *Repository) Remove(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&models.WishlistEntry{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Exists(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns saved items newest first. Entries whose listing is gone
// or sold are kept and flagged unavailable.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]SavedItem, error) {
	rows := []SavedItem{}
	err := r.db.WithContext(ctx).
		Table("wishlist_entries AS w").
		Select("w.id, w.user_id, w.item_id, w.title, w.price, w.image, w.created_at, (l.id IS NOT NULL AND l.sold = ?) AS available", false).
		Joins("LEFT JOIN listings l ON l.id = w.item_id").
		Where("w.user_id = ?", userID).
		Order("w.created_at DESC").Order("w.id DESC").
		Scan(&rows).Error
	return rows, err
}
