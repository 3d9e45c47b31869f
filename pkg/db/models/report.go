package models

import (
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	"github.com/google/uuid"
)

// Report flags a listing for moderator attention.
type Report struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID          `gorm:"column:item_id;type:uuid;not null" json:"item_id"`
	ItemTitle  string             `gorm:"column:item_title;not null" json:"item_title"`
	ReportedBy uuid.UUID          `gorm:"column:reported_by;type:uuid;not null" json:"reported_by"`
	SellerID   uuid.UUID          `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Reason     string             `gorm:"column:reason;not null;default:''" json:"reason"`
	Status     enums.ReportStatus `gorm:"column:status;type:text;not null;index:reports_status_created_idx" json:"status"`
	ResolvedBy *uuid.UUID         `gorm:"column:resolved_by;type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time         `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime;index:reports_status_created_idx" json:"created_at"`
}
