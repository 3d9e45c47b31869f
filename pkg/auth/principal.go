package auth

import (
	"strings"

	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of a marketplace operation.
type Principal struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	College     string
	Role        enums.UserRole
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != uuid.Nil
}

func (p Principal) IsAdmin() bool {
	return p.IsAuthenticated() && p.Role == enums.UserRoleAdmin
}

// CanManage reports whether the caller owns the resource or is an admin.
func (p Principal) CanManage(ownerID uuid.UUID) bool {
	if !p.IsAuthenticated() {
		return false
	}
	return p.UserID == ownerID || p.IsAdmin()
}

// NameOr returns the display name, or fallback when it is blank.
func (p Principal) NameOr(fallback string) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return fallback
}
