package repository

import (
	"context"
	"errors"

	"skustack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, location *model.Location) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Location, error)
	List(ctx context.Context, companyID uuid.UUID) ([]model.Location, error)
	// GetOrCreateDefault returns the company's default location of the
	// given type, lazily creating it on first use.
	GetOrCreateDefault(ctx context.Context, companyID uuid.UUID, locationType string) (*model.Location, error)
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, location *model.Location) error {
	return GetDB(ctx, r.db).Create(location).Error
}

func (r *locationRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Location, error) {
	var location model.Location
	if err := GetDB(ctx, r.db).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *locationRepository) List(ctx context.Context, companyID uuid.UUID) ([]model.Location, error) {
	var locations []model.Location
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at asc").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *locationRepository) GetOrCreateDefault(ctx context.Context, companyID uuid.UUID, locationType string) (*model.Location, error) {
	var location model.Location
	err := GetDB(ctx, r.db).
		Where("company_id = ? AND type = ? AND is_default = ?", companyID, locationType, true).
		First(&location).Error
	if err == nil {
		return &location, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := "Main Warehouse"
	if locationType == model.LocationTypeFinishedGoods {
		name = "Finished Goods"
	}
	location = model.Location{
		CompanyID: companyID,
		Name:      name,
		Type:      locationType,
		IsDefault: true,
		IsActive:  true,
	}
	if err := GetDB(ctx, r.db).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}
