package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SKU is a sellable unit identified by an internal code unique per company.
// Version backs optimistic locking on updates.
type SKU struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_skus_company_code,priority:1;index" json:"company_id"`
	InternalCode string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_skus_company_code,priority:2" json:"internal_code"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	SalesChannel string    `gorm:"type:varchar(50)" json:"sales_channel"`
	Version      int       `gorm:"not null;default:1" json:"version"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BOMVersion is a dated bill-of-materials snapshot for a SKU. At most one
// version per SKU is active at a time; the activation path enforces it.
// Version is a monotonically incrementing optimistic-lock counter.
type BOMVersion struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	SKUID              uuid.UUID  `gorm:"column:sku_id;type:uuid;not null;index" json:"sku_id"`
	VersionName        string     `gorm:"type:varchar(100);not null" json:"version_name"`
	EffectiveStartDate time.Time  `gorm:"not null" json:"effective_start_date"`
	EffectiveEndDate   *time.Time `json:"effective_end_date"`
	IsActive           bool       `gorm:"default:false;index" json:"is_active"`
	Version            int        `gorm:"not null;default:1" json:"version"`

	Lines []BOMLine `gorm:"foreignKey:BOMVersionID" json:"lines"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BOMLine is one component requirement within a BOM version.
// QuantityPerUnit may be fractional.
type BOMLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BOMVersionID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"bom_version_id"`
	ComponentID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"component_id"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_per_unit"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
