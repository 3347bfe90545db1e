package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesDaily is one day's sales total for a sales channel, with the
// ad-attributed portion reported by the ads integration. OrganicSales is
// derived (total minus ad-attributed, clamped at zero) and re-split
// proportionally when channel rows for the same date change.
type SalesDaily struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sales_daily_company_date_channel,priority:1" json:"company_id"`
	Date              time.Time       `gorm:"type:date;not null;uniqueIndex:idx_sales_daily_company_date_channel,priority:2" json:"date"`
	SalesChannel      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_daily_company_date_channel,priority:3" json:"sales_channel"`
	SKUID             *uuid.UUID      `gorm:"column:sku_id;type:uuid;index" json:"sku_id"`
	TotalSales        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_sales"`
	AdAttributedSales decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"ad_attributed_sales"`
	OrganicSales      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"organic_sales"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
