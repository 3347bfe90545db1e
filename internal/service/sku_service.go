package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type CreateSKURequest struct {
	InternalCode string `json:"internal_code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	SalesChannel string `json:"sales_channel"`
}

type UpdateSKURequest struct {
	// ExpectedVersion enables optimistic locking; omitted means update
	// unconditionally. The stored version increments either way.
	ExpectedVersion *int    `json:"expected_version"`
	Name            *string `json:"name"`
	SalesChannel    *string `json:"sales_channel"`
	IsActive        *bool   `json:"is_active"`
}

type BOMLineInput struct {
	ComponentID     string          `json:"component_id" binding:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit" binding:"required"`
}

type CreateBOMVersionRequest struct {
	SKUID              string         `json:"sku_id" binding:"required"`
	VersionName        string         `json:"version_name" binding:"required"`
	EffectiveStartDate time.Time      `json:"effective_start_date"`
	Lines              []BOMLineInput `json:"lines" binding:"dive"`
	Activate           bool           `json:"activate"`
}

type UpdateBOMVersionRequest struct {
	ExpectedVersion    *int           `json:"expected_version"`
	VersionName        *string        `json:"version_name"`
	EffectiveStartDate *time.Time     `json:"effective_start_date"`
	EffectiveEndDate   *time.Time     `json:"effective_end_date"`
	Lines              []BOMLineInput `json:"lines"`
}

// SKUService manages SKUs and their BOM version history. SKU and
// BOMVersion updates are guarded by optimistic version counters; a stale
// expected version aborts with no write.
type SKUService interface {
	CreateSKU(ctx context.Context, companyID uuid.UUID, userID string, req CreateSKURequest) (*model.SKU, error)
	UpdateSKU(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateSKURequest) (*model.SKU, error)
	GetSKU(ctx context.Context, companyID uuid.UUID, id string) (*model.SKU, error)
	ListSKUs(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.SKU, int64, error)

	CreateBOMVersion(ctx context.Context, companyID uuid.UUID, userID string, req CreateBOMVersionRequest) (*model.BOMVersion, error)
	UpdateBOMVersion(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateBOMVersionRequest) (*model.BOMVersion, error)
	ActivateBOMVersion(ctx context.Context, companyID uuid.UUID, userID, id string) (*model.BOMVersion, error)
	ListBOMVersions(ctx context.Context, companyID uuid.UUID, skuID string) ([]model.BOMVersion, error)
}

type skuService struct {
	skuRepo       repository.SKURepository
	bomRepo       repository.BOMVersionRepository
	componentRepo repository.ComponentRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewSKUService(
	skuRepo repository.SKURepository,
	bomRepo repository.BOMVersionRepository,
	componentRepo repository.ComponentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SKUService {
	return &skuService{
		skuRepo:       skuRepo,
		bomRepo:       bomRepo,
		componentRepo: componentRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func (s *skuService) CreateSKU(ctx context.Context, companyID uuid.UUID, userID string, req CreateSKURequest) (*model.SKU, error) {
	if _, err := s.skuRepo.FindByInternalCode(ctx, companyID, req.InternalCode); err == nil {
		return nil, apperror.Conflict("sku", "internal code "+req.InternalCode+" already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sku := &model.SKU{
		CompanyID:    companyID,
		InternalCode: req.InternalCode,
		Name:         req.Name,
		SalesChannel: req.SalesChannel,
		Version:      1,
		IsActive:     true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.skuRepo.Create(txCtx, sku); createErr != nil {
			return createErr
		}
		details, _ := json.Marshal(req)
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateSKU,
			EntityID:   sku.ID.String(),
			EntityName: sku.InternalCode,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return sku, nil
}

func (s *skuService) UpdateSKU(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateSKURequest) (*model.SKU, error) {
	skuID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid sku id")
	}

	var updated *model.SKU
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Version is read inside the same transaction as the write.
		sku, findErr := s.skuRepo.FindByID(txCtx, companyID, skuID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("sku", id)
			}
			return findErr
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != sku.Version {
			return &apperror.VersionConflictError{
				Entity:   "sku " + sku.InternalCode,
				Expected: *req.ExpectedVersion,
				Actual:   sku.Version,
			}
		}

		if req.Name != nil {
			sku.Name = *req.Name
		}
		if req.SalesChannel != nil {
			sku.SalesChannel = *req.SalesChannel
		}
		if req.IsActive != nil {
			sku.IsActive = *req.IsActive
		}
		sku.Version++

		if updateErr := s.skuRepo.Update(txCtx, sku); updateErr != nil {
			return updateErr
		}

		details, _ := json.Marshal(req)
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateSKU,
			EntityID:   sku.ID.String(),
			EntityName: sku.InternalCode,
			Details:    string(details),
		}); auditErr != nil {
			return auditErr
		}

		updated = sku
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *skuService) GetSKU(ctx context.Context, companyID uuid.UUID, id string) (*model.SKU, error) {
	skuID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid sku id")
	}
	sku, err := s.skuRepo.FindByID(ctx, companyID, skuID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("sku", id)
		}
		return nil, err
	}
	return sku, nil
}

func (s *skuService) ListSKUs(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.SKU, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.skuRepo.List(ctx, companyID, page, limit)
}

func (s *skuService) parseLines(ctx context.Context, companyID uuid.UUID, inputs []BOMLineInput) ([]model.BOMLine, error) {
	lines := make([]model.BOMLine, 0, len(inputs))
	for _, input := range inputs {
		if !input.QuantityPerUnit.IsPositive() {
			return nil, apperror.Validation("quantity_per_unit", "quantity per unit must be positive")
		}
		componentID, err := uuid.Parse(input.ComponentID)
		if err != nil {
			return nil, apperror.Validation("component_id", "invalid component id")
		}
		if _, err := s.componentRepo.FindByID(ctx, companyID, componentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("component", input.ComponentID)
			}
			return nil, err
		}
		lines = append(lines, model.BOMLine{
			ComponentID:     componentID,
			QuantityPerUnit: input.QuantityPerUnit,
		})
	}
	return lines, nil
}

func (s *skuService) CreateBOMVersion(ctx context.Context, companyID uuid.UUID, userID string, req CreateBOMVersionRequest) (*model.BOMVersion, error) {
	skuID, err := uuid.Parse(req.SKUID)
	if err != nil {
		return nil, apperror.Validation("sku_id", "invalid sku id")
	}

	startDate := req.EffectiveStartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	var created *model.BOMVersion
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sku, findErr := s.skuRepo.FindByID(txCtx, companyID, skuID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("sku", req.SKUID)
			}
			return findErr
		}

		lines, lineErr := s.parseLines(txCtx, companyID, req.Lines)
		if lineErr != nil {
			return lineErr
		}

		version := &model.BOMVersion{
			CompanyID:          companyID,
			SKUID:              sku.ID,
			VersionName:        req.VersionName,
			EffectiveStartDate: startDate,
			IsActive:           req.Activate,
			Version:            1,
			Lines:              lines,
		}
		if createErr := s.bomRepo.Create(txCtx, version); createErr != nil {
			return createErr
		}
		if req.Activate {
			if deactErr := s.bomRepo.DeactivateSiblings(txCtx, sku.ID, version.ID); deactErr != nil {
				return deactErr
			}
		}

		details, _ := json.Marshal(req)
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateBOMVersion,
			EntityID:   version.ID.String(),
			EntityName: sku.InternalCode + " / " + version.VersionName,
			Details:    string(details),
		}); auditErr != nil {
			return auditErr
		}

		created = version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBOMVersion rejects stale writes: when ExpectedVersion is supplied
// and does not match the stored counter, nothing is written and the caller
// must re-fetch and retry. Lines are replaced wholesale in the same scope.
func (s *skuService) UpdateBOMVersion(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateBOMVersionRequest) (*model.BOMVersion, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid bom version id")
	}

	var updated *model.BOMVersion
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		version, findErr := s.bomRepo.FindByID(txCtx, companyID, versionID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("bom version", id)
			}
			return findErr
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != version.Version {
			return &apperror.VersionConflictError{
				Entity:   "bom version " + version.VersionName,
				Expected: *req.ExpectedVersion,
				Actual:   version.Version,
			}
		}

		if req.VersionName != nil {
			version.VersionName = *req.VersionName
		}
		if req.EffectiveStartDate != nil {
			version.EffectiveStartDate = *req.EffectiveStartDate
		}
		if req.EffectiveEndDate != nil {
			version.EffectiveEndDate = req.EffectiveEndDate
		}
		version.Version++

		if req.Lines != nil {
			lines, lineErr := s.parseLines(txCtx, companyID, req.Lines)
			if lineErr != nil {
				return lineErr
			}
			if replaceErr := s.bomRepo.ReplaceLines(txCtx, version.ID, lines); replaceErr != nil {
				return replaceErr
			}
		}
		if updateErr := s.bomRepo.Update(txCtx, version); updateErr != nil {
			return updateErr
		}

		details, _ := json.Marshal(req)
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateBOMVersion,
			EntityID:   version.ID.String(),
			EntityName: version.VersionName,
			Details:    string(details),
		}); auditErr != nil {
			return auditErr
		}

		reloaded, reloadErr := s.bomRepo.FindByID(txCtx, companyID, version.ID)
		if reloadErr != nil {
			return reloadErr
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *skuService) ActivateBOMVersion(ctx context.Context, companyID uuid.UUID, userID, id string) (*model.BOMVersion, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid bom version id")
	}

	var activated *model.BOMVersion
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		version, findErr := s.bomRepo.FindByID(txCtx, companyID, versionID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("bom version", id)
			}
			return findErr
		}

		version.IsActive = true
		version.Version++
		if updateErr := s.bomRepo.Update(txCtx, version); updateErr != nil {
			return updateErr
		}
		if deactErr := s.bomRepo.DeactivateSiblings(txCtx, version.SKUID, version.ID); deactErr != nil {
			return deactErr
		}

		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionActivateBOMVersion,
			EntityID:   version.ID.String(),
			EntityName: version.VersionName,
			Details:    "{}",
		}); auditErr != nil {
			return auditErr
		}

		activated = version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (s *skuService) ListBOMVersions(ctx context.Context, companyID uuid.UUID, skuID string) ([]model.BOMVersion, error) {
	id, err := uuid.Parse(skuID)
	if err != nil {
		return nil, apperror.Validation("sku_id", "invalid sku id")
	}
	return s.bomRepo.ListBySKU(ctx, companyID, id)
}
