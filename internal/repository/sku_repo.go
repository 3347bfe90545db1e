package repository

import (
	"context"
	"errors"

	"skustack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SKURepository interface {
	Create(ctx context.Context, sku *model.SKU) error
	Update(ctx context.Context, sku *model.SKU) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.SKU, error)
	FindByInternalCode(ctx context.Context, companyID uuid.UUID, code string) (*model.SKU, error)
	List(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.SKU, int64, error)
}

type skuRepository struct {
	db *gorm.DB
}

func NewSKURepository(db *gorm.DB) SKURepository {
	return &skuRepository{db: db}
}

func (r *skuRepository) Create(ctx context.Context, sku *model.SKU) error {
	return GetDB(ctx, r.db).Create(sku).Error
}

func (r *skuRepository) Update(ctx context.Context, sku *model.SKU) error {
	return GetDB(ctx, r.db).Save(sku).Error
}

func (r *skuRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.SKU, error) {
	var sku model.SKU
	if err := GetDB(ctx, r.db).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&sku).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) FindByInternalCode(ctx context.Context, companyID uuid.UUID, code string) (*model.SKU, error) {
	var sku model.SKU
	if err := GetDB(ctx, r.db).
		Where("company_id = ? AND internal_code = ?", companyID, code).
		First(&sku).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) List(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.SKU, int64, error) {
	var skus []model.SKU
	var total int64

	db := GetDB(ctx, r.db).Model(&model.SKU{}).Where("company_id = ? AND is_active = ?", companyID, true)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("internal_code asc").Offset(offset).Limit(limit).Find(&skus).Error; err != nil {
		return nil, 0, err
	}
	return skus, total, nil
}

type BOMVersionRepository interface {
	Create(ctx context.Context, version *model.BOMVersion) error
	// Update persists header fields only; lines are replaced wholesale via
	// ReplaceLines inside the same atomic scope.
	Update(ctx context.Context, version *model.BOMVersion) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.BOMVersion, error)
	FindActiveBySKU(ctx context.Context, companyID, skuID uuid.UUID) (*model.BOMVersion, error)
	ListBySKU(ctx context.Context, companyID, skuID uuid.UUID) ([]model.BOMVersion, error)
	ReplaceLines(ctx context.Context, versionID uuid.UUID, lines []model.BOMLine) error
	// DeactivateSiblings clears IsActive on every other version of the SKU,
	// keeping the exactly-one-active invariant.
	DeactivateSiblings(ctx context.Context, skuID, keepID uuid.UUID) error
}

type bomVersionRepository struct {
	db *gorm.DB
}

func NewBOMVersionRepository(db *gorm.DB) BOMVersionRepository {
	return &bomVersionRepository{db: db}
}

func (r *bomVersionRepository) Create(ctx context.Context, version *model.BOMVersion) error {
	return GetDB(ctx, r.db).Create(version).Error
}

func (r *bomVersionRepository) Update(ctx context.Context, version *model.BOMVersion) error {
	return GetDB(ctx, r.db).Omit("Lines").Save(version).Error
}

func (r *bomVersionRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.BOMVersion, error) {
	var version model.BOMVersion
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Where("id = ? AND company_id = ?", id, companyID).
		First(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *bomVersionRepository) FindActiveBySKU(ctx context.Context, companyID, skuID uuid.UUID) (*model.BOMVersion, error) {
	var version model.BOMVersion
	err := GetDB(ctx, r.db).
		Preload("Lines").
		Where("company_id = ? AND sku_id = ? AND is_active = ?", companyID, skuID, true).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

func (r *bomVersionRepository) ListBySKU(ctx context.Context, companyID, skuID uuid.UUID) ([]model.BOMVersion, error) {
	var versions []model.BOMVersion
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		Where("company_id = ? AND sku_id = ?", companyID, skuID).
		Order("effective_start_date desc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *bomVersionRepository) ReplaceLines(ctx context.Context, versionID uuid.UUID, lines []model.BOMLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("bom_version_id = ?", versionID).Delete(&model.BOMLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].BOMVersionID = versionID
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *bomVersionRepository) DeactivateSiblings(ctx context.Context, skuID, keepID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.BOMVersion{}).
		Where("sku_id = ? AND id <> ?", skuID, keepID).
		Update("is_active", false).Error
}
