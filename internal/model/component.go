package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reorder status tags
const (
	ReorderStatusCritical = "critical"
	ReorderStatusWarning  = "warning"
	ReorderStatusOK       = "ok"
)

// Component is a trackable inventory item. Name and SKUCode are unique
// within a company. Current balances are never stored here; they are
// derived from transaction lines.
type Component struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_components_company_sku,priority:1;index" json:"company_id"`
	SKUCode       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_components_company_sku,priority:2" json:"sku_code"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Category      string          `gorm:"type:varchar(100)" json:"category"`
	UnitOfMeasure string          `gorm:"type:varchar(20);default:'each'" json:"unit_of_measure"`
	CostPerUnit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_per_unit"`
	ReorderPoint  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"reorder_point"` // 0 disables reorder tracking
	LeadTimeDays  int             `gorm:"type:int;default:0" json:"lead_time_days"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
