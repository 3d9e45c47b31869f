package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformSettingsID is the primary key of the singleton settings row.
const PlatformSettingsID = 1

type PlatformSettings struct {
	ID          int             `gorm:"column:id;primaryKey" json:"-"`
	PlatformFee decimal.Decimal `gorm:"column:platform_fee;type:numeric(12,2);not null" json:"platform_fee"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
	UpdatedBy   *uuid.UUID      `gorm:"column:updated_by;type:uuid" json:"updated_by,omitempty"`
}

func (PlatformSettings) TableName() string {
	return "platform_settings"
}
