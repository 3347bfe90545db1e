package repository

import (
	"context"
	"errors"
	"time"

	"skustack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SalesRepository interface {
	FindByDateChannel(ctx context.Context, companyID uuid.UUID, date time.Time, channel string) (*model.SalesDaily, error)
	ListByDate(ctx context.Context, companyID uuid.UUID, date time.Time) ([]model.SalesDaily, error)
	ListRange(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]model.SalesDaily, error)
	Create(ctx context.Context, record *model.SalesDaily) error
	Update(ctx context.Context, record *model.SalesDaily) error
}

type salesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) FindByDateChannel(ctx context.Context, companyID uuid.UUID, date time.Time, channel string) (*model.SalesDaily, error) {
	var record model.SalesDaily
	err := GetDB(ctx, r.db).
		Where("company_id = ? AND date = ? AND sales_channel = ?", companyID, date, channel).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *salesRepository) ListByDate(ctx context.Context, companyID uuid.UUID, date time.Time) ([]model.SalesDaily, error) {
	var records []model.SalesDaily
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND date = ?", companyID, date).
		Order("sales_channel asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *salesRepository) ListRange(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]model.SalesDaily, error) {
	var records []model.SalesDaily
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND date >= ? AND date <= ?", companyID, start, end).
		Order("date asc, sales_channel asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *salesRepository) Create(ctx context.Context, record *model.SalesDaily) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *salesRepository) Update(ctx context.Context, record *model.SalesDaily) error {
	return GetDB(ctx, r.db).Save(record).Error
}
