package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot status tags. Status is computed on read from ExpiryDate, never stored.
const (
	LotStatusOK           = "ok"
	LotStatusExpiringSoon = "expiring_soon"
	LotStatusExpired      = "expired"
)

// LotExpiringWindowDays is how far ahead of expiry a lot is flagged.
const LotExpiringWindowDays = 30

// Lot is a received batch of a component with its own expiry and balance,
// for traceability. Its running balance is the sum of its transaction lines.
type Lot struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	ComponentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lots_component_number,priority:1" json:"component_id"`
	LotNumber   string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_lots_component_number,priority:2" json:"lot_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"received_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Status classifies the lot against the given reference time.
func (l *Lot) Status(now time.Time) string {
	if l.ExpiryDate == nil {
		return LotStatusOK
	}
	if !l.ExpiryDate.After(now) {
		return LotStatusExpired
	}
	if l.ExpiryDate.Before(now.AddDate(0, 0, LotExpiringWindowDays)) {
		return LotStatusExpiringSoon
	}
	return LotStatusOK
}
