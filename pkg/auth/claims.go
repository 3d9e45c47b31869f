package auth

import (
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID      uuid.UUID      `json:"user_id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"name,omitempty"`
	College     string         `json:"college,omitempty"`
	Role        enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts the verified claims into the caller identity.
func (c AccessTokenClaims) Principal() Principal {
	return Principal{
		UserID:      c.UserID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		College:     c.College,
		Role:        c.Role,
	}
}
