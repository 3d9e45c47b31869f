package models

import (
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
)

// User is a registered student or administrator.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  string         `gorm:"column:display_name;not null" json:"display_name"`
	College      string         `gorm:"column:college;not null;default:''" json:"college"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null" json:"role"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
