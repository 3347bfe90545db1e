package repository

import (
	"context"
	"errors"

	"skustack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	// Create persists the transaction together with its component and
	// finished-goods lines in one insert cascade. Callers wrap it in
	// TransactionManager.RunInTx alongside whatever state reads preceded it.
	Create(ctx context.Context, tx *model.Transaction) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Transaction, error)
	List(ctx context.Context, companyID uuid.UUID, page, limit int, txType string) ([]model.Transaction, int64, error)
	// FindInitialByComponent returns the (at most one) initial-balance
	// transaction referencing the component.
	FindInitialByComponent(ctx context.Context, companyID, componentID uuid.UUID) (*model.Transaction, error)
	// ReplaceLines deletes the transaction's component lines wholesale and
	// inserts the new set. Finished-goods lines are left untouched so an
	// edit can never erase a build's production. Must run inside an atomic
	// scope.
	ReplaceLines(ctx context.Context, txID uuid.UUID, lines []model.TransactionLine) error
	// DeleteWithLines removes the transaction and all of its lines.
	DeleteWithLines(ctx context.Context, txID uuid.UUID) error
	Update(ctx context.Context, tx *model.Transaction) error

	// Balance aggregation. Balances are always computed live from
	// non-void lines; there is no materialized balance row to desync.
	SumQuantity(ctx context.Context, companyID, componentID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error)
	SumQuantities(ctx context.Context, companyID uuid.UUID, componentIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	SumFinishedGoods(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("FinishedGoodsLines").
		Where("id = ? AND company_id = ?", id, companyID).
		First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, companyID uuid.UUID, page, limit int, txType string) ([]model.Transaction, int64, error) {
	var txs []model.Transaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Transaction{}).Where("company_id = ?", companyID)
	if txType != "" {
		db = db.Where("type = ?", txType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Lines").Preload("FinishedGoodsLines").
		Order("date desc, created_at desc").
		Offset(offset).Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

func (r *transactionRepository) FindInitialByComponent(ctx context.Context, companyID, componentID uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	err := GetDB(ctx, r.db).
		Preload("Lines").
		Joins("JOIN transaction_lines ON transaction_lines.transaction_id = transactions.id").
		Where("transactions.company_id = ? AND transactions.type = ? AND transaction_lines.component_id = ?",
			companyID, model.TxTypeInitial, componentID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) ReplaceLines(ctx context.Context, txID uuid.UUID, lines []model.TransactionLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("transaction_id = ?", txID).Delete(&model.TransactionLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].TransactionID = txID
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *transactionRepository) DeleteWithLines(ctx context.Context, txID uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("transaction_id = ?", txID).Delete(&model.TransactionLine{}).Error; err != nil {
		return err
	}
	if err := db.Where("transaction_id = ?", txID).Delete(&model.FinishedGoodsLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", txID).Delete(&model.Transaction{}).Error
}

func (r *transactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Omit("Lines", "FinishedGoodsLines").Save(tx).Error
}

func (r *transactionRepository) SumQuantity(ctx context.Context, companyID, componentID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	db := GetDB(ctx, r.db).Table("transaction_lines").
		Select("COALESCE(SUM(transaction_lines.quantity_change), 0) as total").
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id").
		Where("transactions.company_id = ? AND transactions.status = ? AND transaction_lines.component_id = ?",
			companyID, model.TxStatusApproved, componentID)
	if locationID != nil {
		db = db.Where("transaction_lines.location_id = ?", *locationID)
	}
	if err := db.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *transactionRepository) SumQuantities(ctx context.Context, companyID uuid.UUID, componentIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	quantities := make(map[uuid.UUID]decimal.Decimal, len(componentIDs))
	for _, id := range componentIDs {
		quantities[id] = decimal.Zero
	}
	if len(componentIDs) == 0 {
		return quantities, nil
	}

	var rows []struct {
		ComponentID uuid.UUID
		Total       decimal.Decimal
	}
	db := GetDB(ctx, r.db).Table("transaction_lines").
		Select("transaction_lines.component_id as component_id, COALESCE(SUM(transaction_lines.quantity_change), 0) as total").
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id").
		Where("transactions.company_id = ? AND transactions.status = ? AND transaction_lines.component_id IN ?",
			companyID, model.TxStatusApproved, componentIDs).
		Group("transaction_lines.component_id")
	if locationID != nil {
		db = db.Where("transaction_lines.location_id = ?", *locationID)
	}
	if err := db.Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		quantities[row.ComponentID] = row.Total
	}
	return quantities, nil
}

func (r *transactionRepository) SumFinishedGoods(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	db := GetDB(ctx, r.db).Table("finished_goods_lines").
		Select("COALESCE(SUM(finished_goods_lines.quantity_change), 0) as total").
		Joins("JOIN transactions ON transactions.id = finished_goods_lines.transaction_id").
		Where("transactions.company_id = ? AND transactions.status = ? AND finished_goods_lines.sku_id = ?",
			companyID, model.TxStatusApproved, skuID)
	if locationID != nil {
		db = db.Where("finished_goods_lines.location_id = ?", *locationID)
	}
	if err := db.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
