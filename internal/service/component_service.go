package service

import (
	"context"
	"encoding/json"
	"errors"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type CreateComponentRequest struct {
	SKUCode       string          `json:"sku_code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Category      string          `json:"category"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
	LeadTimeDays  int             `json:"lead_time_days"`
}

type UpdateComponentRequest struct {
	Name          *string          `json:"name"`
	Category      *string          `json:"category"`
	UnitOfMeasure *string          `json:"unit_of_measure"`
	CostPerUnit   *decimal.Decimal `json:"cost_per_unit"`
	ReorderPoint  *decimal.Decimal `json:"reorder_point"`
	LeadTimeDays  *int             `json:"lead_time_days"`
}

// ComponentResponse is a component joined with its live balance and
// reorder classification.
type ComponentResponse struct {
	ID             uuid.UUID       `json:"id"`
	SKUCode        string          `json:"sku_code"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
	CostPerUnit    decimal.Decimal `json:"cost_per_unit"`
	ReorderPoint   decimal.Decimal `json:"reorder_point"`
	LeadTimeDays   int             `json:"lead_time_days"`
	IsActive       bool            `json:"is_active"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	ReorderStatus  string          `json:"reorder_status"`
}

// ComponentService is the CRUD surface for components. Deactivation is an
// explicit state transition; component rows are never deleted because the
// ledger references them.
type ComponentService interface {
	CreateComponent(ctx context.Context, companyID uuid.UUID, userID string, req CreateComponentRequest) (*model.Component, error)
	UpdateComponent(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateComponentRequest) (*model.Component, error)
	DeactivateComponent(ctx context.Context, companyID uuid.UUID, userID, id string) error
	GetComponent(ctx context.Context, companyID uuid.UUID, id string) (*ComponentResponse, error)
	ListComponents(ctx context.Context, companyID uuid.UUID, page, limit int, search string) ([]ComponentResponse, int64, error)
}

type componentService struct {
	componentRepo repository.ComponentRepository
	txRepo        repository.TransactionRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewComponentService(
	componentRepo repository.ComponentRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ComponentService {
	return &componentService{
		componentRepo: componentRepo,
		txRepo:        txRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func (s *componentService) toResponse(component *model.Component, quantity decimal.Decimal) ComponentResponse {
	return ComponentResponse{
		ID:             component.ID,
		SKUCode:        component.SKUCode,
		Name:           component.Name,
		Category:       component.Category,
		UnitOfMeasure:  component.UnitOfMeasure,
		CostPerUnit:    component.CostPerUnit,
		ReorderPoint:   component.ReorderPoint,
		LeadTimeDays:   component.LeadTimeDays,
		IsActive:       component.IsActive,
		QuantityOnHand: quantity,
		ReorderStatus:  CalculateReorderStatus(quantity, component.ReorderPoint, ReorderWarningMultiplier),
	}
}

func (s *componentService) CreateComponent(ctx context.Context, companyID uuid.UUID, userID string, req CreateComponentRequest) (*model.Component, error) {
	if req.CostPerUnit.IsNegative() {
		return nil, apperror.Validation("cost_per_unit", "cost cannot be negative")
	}
	if req.ReorderPoint.IsNegative() {
		return nil, apperror.Validation("reorder_point", "reorder point cannot be negative")
	}

	if _, err := s.componentRepo.FindBySKUCode(ctx, companyID, req.SKUCode); err == nil {
		return nil, apperror.Conflict("component", "sku code "+req.SKUCode+" already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.componentRepo.FindByName(ctx, companyID, req.Name); err == nil {
		return nil, apperror.Conflict("component", "name "+req.Name+" already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	unitOfMeasure := req.UnitOfMeasure
	if unitOfMeasure == "" {
		unitOfMeasure = "each"
	}

	component := &model.Component{
		CompanyID:     companyID,
		SKUCode:       req.SKUCode,
		Name:          req.Name,
		Category:      req.Category,
		UnitOfMeasure: unitOfMeasure,
		CostPerUnit:   req.CostPerUnit,
		ReorderPoint:  req.ReorderPoint,
		LeadTimeDays:  req.LeadTimeDays,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.componentRepo.Create(txCtx, component); createErr != nil {
			return createErr
		}
		details, _ := json.Marshal(req)
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateComponent,
			EntityID:   component.ID.String(),
			EntityName: component.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return component, nil
}

func (s *componentService) UpdateComponent(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateComponentRequest) (*model.Component, error) {
	componentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid component id")
	}

	var updated *model.Component
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		component, findErr := s.componentRepo.FindByID(txCtx, companyID, componentID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("component", id)
			}
			return findErr
		}

		if req.Name != nil && *req.Name != component.Name {
			if _, dupErr := s.componentRepo.FindByName(txCtx, companyID, *req.Name); dupErr == nil {
				return apperror.Conflict("component", "name "+*req.Name+" already exists")
			} else if !errors.Is(dupErr, gorm.ErrRecordNotFound) {
				return dupErr
			}
			component.Name = *req.Name
		}
		if req.Category != nil {
			component.Category = *req.Category
		}
		if req.UnitOfMeasure != nil {
			component.UnitOfMeasure = *req.UnitOfMeasure
		}
		if req.CostPerUnit != nil {
			if req.CostPerUnit.IsNegative() {
				return apperror.Validation("cost_per_unit", "cost cannot be negative")
			}
			component.CostPerUnit = *req.CostPerUnit
		}
		if req.ReorderPoint != nil {
			if req.ReorderPoint.IsNegative() {
				return apperror.Validation("reorder_point", "reorder point cannot be negative")
			}
			component.ReorderPoint = *req.ReorderPoint
		}
		if req.LeadTimeDays != nil {
			component.LeadTimeDays = *req.LeadTimeDays
		}

		if updateErr := s.componentRepo.Update(txCtx, component); updateErr != nil {
			return updateErr
		}

		details, _ := json.Marshal(req)
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateComponent,
			EntityID:   component.ID.String(),
			EntityName: component.Name,
			Details:    string(details),
		}); auditErr != nil {
			return auditErr
		}

		updated = component
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *componentService) DeactivateComponent(ctx context.Context, companyID uuid.UUID, userID, id string) error {
	componentID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("id", "invalid component id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		component, findErr := s.componentRepo.FindByID(txCtx, companyID, componentID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("component", id)
			}
			return findErr
		}

		component.IsActive = false
		if updateErr := s.componentRepo.Update(txCtx, component); updateErr != nil {
			return updateErr
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionDeactivateComponent,
			EntityID:   component.ID.String(),
			EntityName: component.Name,
			Details:    `{"is_active": false}`,
		})
	})
}

func (s *componentService) GetComponent(ctx context.Context, companyID uuid.UUID, id string) (*ComponentResponse, error) {
	componentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid component id")
	}
	component, err := s.componentRepo.FindByID(ctx, companyID, componentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("component", id)
		}
		return nil, err
	}

	quantity, err := s.txRepo.SumQuantity(ctx, companyID, component.ID, nil)
	if err != nil {
		return nil, err
	}
	res := s.toResponse(component, quantity)
	return &res, nil
}

func (s *componentService) ListComponents(ctx context.Context, companyID uuid.UUID, page, limit int, search string) ([]ComponentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	components, total, err := s.componentRepo.List(ctx, companyID, page, limit, search, false)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}
	quantities, err := s.txRepo.SumQuantities(ctx, companyID, ids, nil)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ComponentResponse, 0, len(components))
	for i := range components {
		res = append(res, s.toResponse(&components[i], quantities[components[i].ID]))
	}
	return res, total, nil
}
