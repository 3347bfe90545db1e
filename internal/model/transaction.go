package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types, a closed enumeration.
const (
	TxTypeReceipt    = "receipt"
	TxTypeAdjustment = "adjustment"
	TxTypeBuild      = "build"
	TxTypeTransfer   = "transfer"
	TxTypeOutbound   = "outbound"
	TxTypeInitial    = "initial"
)

// Transaction status constants
const (
	TxStatusApproved = "approved"
	TxStatusVoid     = "void"
)

// Transaction is an immutable record of one inventory-affecting event.
// Balances are never edited directly: the only writer is "insert lines",
// and all readers aggregate over non-void lines.
type Transaction struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Type           string     `gorm:"type:varchar(20);not null;index" json:"type"`
	Date           time.Time  `gorm:"not null;index" json:"date"`
	SKUID          *uuid.UUID `gorm:"column:sku_id;type:uuid;index" json:"sku_id"`
	BOMVersionID   *uuid.UUID `gorm:"type:uuid" json:"bom_version_id"`
	FromLocationID *uuid.UUID `gorm:"type:uuid" json:"from_location_id"`
	ToLocationID   *uuid.UUID `gorm:"type:uuid" json:"to_location_id"`
	SalesChannel   string     `gorm:"type:varchar(50)" json:"sales_channel"`
	Supplier       string     `gorm:"type:varchar(255)" json:"supplier"`
	Notes          string     `gorm:"type:text" json:"notes"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	Status         string     `gorm:"type:varchar(20);not null;default:'approved'" json:"status"`

	// Cost snapshots taken at build time; never recomputed later.
	UnitCost  *decimal.Decimal `gorm:"type:decimal(18,4)" json:"unit_cost"`
	TotalCost *decimal.Decimal `gorm:"type:decimal(18,4)" json:"total_cost"`

	Lines              []TransactionLine   `gorm:"foreignKey:TransactionID" json:"lines"`
	FinishedGoodsLines []FinishedGoodsLine `gorm:"foreignKey:TransactionID" json:"finished_goods_lines,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TransactionLine is one signed component-quantity delta within a
// transaction. Lines are created atomically with their parent and never
// mutated independently; edits replace lines wholesale.
type TransactionLine struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ComponentID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_tx_lines_component_location,priority:1" json:"component_id"`
	LocationID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_tx_lines_component_location,priority:2" json:"location_id"`
	QuantityChange decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity_change"`
	CostPerUnit    *decimal.Decimal `gorm:"type:decimal(18,4)" json:"cost_per_unit"`
	LotID          *uuid.UUID       `gorm:"type:uuid;index" json:"lot_id"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// FinishedGoodsLine is the finished-goods analogue of TransactionLine:
// a signed SKU-quantity delta at a location, used by build and outbound
// transactions.
type FinishedGoodsLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	SKUID          uuid.UUID       `gorm:"column:sku_id;type:uuid;not null;index:idx_fg_lines_sku_location,priority:1" json:"sku_id"`
	LocationID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_fg_lines_sku_location,priority:2" json:"location_id"`
	QuantityChange decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_change"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
