package users

import (
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"max=80"`
	College     string `json:"college" validate:"max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserDTO is the public profile shape; it never carries the password hash.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	College     string         `json:"college"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	User        *UserDTO `json:"user"`
}

func FromModel(m *models.User) *UserDTO {
	if m == nil {
		return nil
	}
	return &UserDTO{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		College:     m.College,
		Role:        m.Role,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
	}
}
