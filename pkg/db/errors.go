package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
)

// IsUniqueViolation reports whether err was raised by a unique constraint,
// whichever driver produced it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if pkgerrors.Dump(err).UniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
