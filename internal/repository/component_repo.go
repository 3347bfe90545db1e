package repository

import (
	"context"
	"strings"

	"skustack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComponentRepository interface {
	Create(ctx context.Context, component *model.Component) error
	Update(ctx context.Context, component *model.Component) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Component, error)
	FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]model.Component, error)
	FindBySKUCode(ctx context.Context, companyID uuid.UUID, skuCode string) (*model.Component, error)
	FindByName(ctx context.Context, companyID uuid.UUID, name string) (*model.Component, error)
	List(ctx context.Context, companyID uuid.UUID, page, limit int, search string, includeInactive bool) ([]model.Component, int64, error)
}

type componentRepository struct {
	db *gorm.DB
}

func NewComponentRepository(db *gorm.DB) ComponentRepository {
	return &componentRepository{db: db}
}

func (r *componentRepository) Create(ctx context.Context, component *model.Component) error {
	return GetDB(ctx, r.db).Create(component).Error
}

func (r *componentRepository) Update(ctx context.Context, component *model.Component) error {
	return GetDB(ctx, r.db).Save(component).Error
}

func (r *componentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.Component, error) {
	var component model.Component
	if err := GetDB(ctx, r.db).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&component).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

func (r *componentRepository) FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]model.Component, error) {
	var components []model.Component
	if err := GetDB(ctx, r.db).
		Where("id IN ? AND company_id = ?", ids, companyID).
		Find(&components).Error; err != nil {
		return nil, err
	}
	return components, nil
}

func (r *componentRepository) FindBySKUCode(ctx context.Context, companyID uuid.UUID, skuCode string) (*model.Component, error) {
	var component model.Component
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND sku_code = ?", companyID, skuCode).
		First(&component).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

func (r *componentRepository) FindByName(ctx context.Context, companyID uuid.UUID, name string) (*model.Component, error) {
	var component model.Component
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND name = ?", companyID, name).
		First(&component).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

func (r *componentRepository) List(ctx context.Context, companyID uuid.UUID, page, limit int, search string, includeInactive bool) ([]model.Component, int64, error) {
	var components []model.Component
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Component{}).Where("company_id = ?", companyID)
	if search != "" {
		// LOWER+LIKE instead of ILIKE so the query runs on sqlite too.
		pattern := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(sku_code) LIKE ?", pattern, pattern)
	}
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&components).Error; err != nil {
		return nil, 0, err
	}

	return components, total, nil
}
