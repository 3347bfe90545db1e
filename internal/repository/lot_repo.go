package repository

import (
	"context"
	"errors"
	"time"

	"skustack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LotRepository interface {
	// FindOrCreate reuses an existing lot of the component with the same
	// lot number, creating it otherwise.
	FindOrCreate(ctx context.Context, companyID, componentID uuid.UUID, lotNumber string, expiryDate *time.Time) (*model.Lot, error)
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Lot, error)
	ListByComponent(ctx context.Context, companyID, componentID uuid.UUID) ([]model.Lot, error)
	// Balance sums the lot's own transaction lines.
	Balance(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error)
	AddReceived(ctx context.Context, lotID uuid.UUID, qty decimal.Decimal) error
}

type lotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) LotRepository {
	return &lotRepository{db: db}
}

func (r *lotRepository) FindOrCreate(ctx context.Context, companyID, componentID uuid.UUID, lotNumber string, expiryDate *time.Time) (*model.Lot, error) {
	var lot model.Lot
	err := GetDB(ctx, r.db).
		Where("company_id = ? AND component_id = ? AND lot_number = ?", companyID, componentID, lotNumber).
		First(&lot).Error
	if err == nil {
		return &lot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	lot = model.Lot{
		CompanyID:   companyID,
		ComponentID: componentID,
		LotNumber:   lotNumber,
		ExpiryDate:  expiryDate,
	}
	if err := GetDB(ctx, r.db).Create(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Lot, error) {
	var lot model.Lot
	if err := GetDB(ctx, r.db).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) ListByComponent(ctx context.Context, companyID, componentID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND component_id = ?", companyID, componentID).
		Order("created_at asc").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *lotRepository) Balance(ctx context.Context, lotID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Table("transaction_lines").
		Select("COALESCE(SUM(transaction_lines.quantity_change), 0) as total").
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id").
		Where("transaction_lines.lot_id = ? AND transactions.status = ?", lotID, model.TxStatusApproved).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *lotRepository) AddReceived(ctx context.Context, lotID uuid.UUID, qty decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Lot{}).
		Where("id = ?", lotID).
		Update("received_qty", gorm.Expr("received_qty + ?", qty)).Error
}
