package model

import (
	"time"

	"github.com/google/uuid"
)

// Company is the multi-tenant root. Every other entity carries a CompanyID
// and every query is scoped by it.
type Company struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(255);not null" json:"name"`
	// AllowNegativeInventory lets outbound shipments drive finished-goods
	// balances below zero instead of failing.
	AllowNegativeInventory bool      `gorm:"default:false" json:"allow_negative_inventory"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Location types
const (
	LocationTypeWarehouse     = "warehouse"
	LocationTypeFinishedGoods = "finished_goods"
)

// Location is a physical or logical inventory bucket scoped to a company.
// Each company gets a default location per type, created lazily.
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Type      string    `gorm:"type:varchar(20);not null;default:'warehouse'" json:"type"` // warehouse, finished_goods
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
