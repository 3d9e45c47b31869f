package messages

import (
	"context"
	"errors"

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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// Latest returns the newest message of the conversation, or nil when it has none.
func (r *Repository) Latest(ctx context.Context, conversationID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").Order("id DESC").
		Take(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns the conversation's messages oldest first.
func (r *Repository) List(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}
