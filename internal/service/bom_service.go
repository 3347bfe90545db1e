package service

import (
	"context"
	"errors"
	"sort"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LimitingFactor explains how far one BOM component alone would let a
// build go. Sorted ascending by BuildableUnits, the first entries are the
// binding constraints.
type LimitingFactor struct {
	ComponentID     uuid.UUID       `json:"component_id"`
	ComponentName   string          `json:"component_name"`
	SKUCode         string          `json:"sku_code"`
	Available       decimal.Decimal `json:"available"`
	RequiredPerUnit decimal.Decimal `json:"required_per_unit"`
	BuildableUnits  int64           `json:"buildable_units"`
}

// LineCostInput is one BOM editor row paired with the component's current
// cost, for previews that never touch storage.
type LineCostInput struct {
	ComponentID     uuid.UUID
	QuantityPerUnit decimal.Decimal
	ComponentCost   decimal.Decimal
}

// LineCost is the computed per-line cost for a preview row.
type LineCost struct {
	ComponentID uuid.UUID       `json:"component_id"`
	Cost        decimal.Decimal `json:"cost"`
}

// CalculateLineCosts maps BOM lines to their per-unit cost. Pure, no I/O.
func CalculateLineCosts(lines []LineCostInput) []LineCost {
	costs := make([]LineCost, 0, len(lines))
	for _, line := range lines {
		costs = append(costs, LineCost{
			ComponentID: line.ComponentID,
			Cost:        line.QuantityPerUnit.Mul(line.ComponentCost),
		})
	}
	return costs
}

// BOMService answers cost and buildability questions over BOM versions.
// Buildable units is a min-ratio computation: the scarcest component
// bounds the whole build.
type BOMService interface {
	CalculateBOMUnitCost(ctx context.Context, companyID, bomVersionID uuid.UUID) (decimal.Decimal, error)
	CalculateBOMUnitCosts(ctx context.Context, companyID uuid.UUID, bomVersionIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// CalculateMaxBuildableUnits returns nil when the SKU has no active
	// BOM version or the version has no lines: "cannot assess", distinct
	// from "can build none".
	CalculateMaxBuildableUnits(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (*int64, error)
	CalculateLimitingFactors(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) ([]LimitingFactor, error)
}

type bomService struct {
	componentRepo repository.ComponentRepository
	bomRepo       repository.BOMVersionRepository
	txRepo        repository.TransactionRepository
}

func NewBOMService(
	componentRepo repository.ComponentRepository,
	bomRepo repository.BOMVersionRepository,
	txRepo repository.TransactionRepository,
) BOMService {
	return &bomService{
		componentRepo: componentRepo,
		bomRepo:       bomRepo,
		txRepo:        txRepo,
	}
}

// componentsByID loads the referenced components, failing closed with
// NotFound when any of them is absent or belongs to another company.
func (s *bomService) componentsByID(ctx context.Context, companyID uuid.UUID, lines []model.BOMLine) (map[uuid.UUID]model.Component, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ComponentID)
	}
	components, err := s.componentRepo.FindByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Component, len(components))
	for _, c := range components {
		byID[c.ID] = c
	}
	for _, line := range lines {
		if _, ok := byID[line.ComponentID]; !ok {
			return nil, apperror.NotFound("component", line.ComponentID.String())
		}
	}
	return byID, nil
}

func (s *bomService) CalculateBOMUnitCost(ctx context.Context, companyID, bomVersionID uuid.UUID) (decimal.Decimal, error) {
	version, err := s.bomRepo.FindByID(ctx, companyID, bomVersionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apperror.NotFound("bom version", bomVersionID.String())
		}
		return decimal.Zero, err
	}
	if len(version.Lines) == 0 {
		return decimal.Zero, nil
	}

	components, err := s.componentsByID(ctx, companyID, version.Lines)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range version.Lines {
		total = total.Add(line.QuantityPerUnit.Mul(components[line.ComponentID].CostPerUnit))
	}
	return total, nil
}

func (s *bomService) CalculateBOMUnitCosts(ctx context.Context, companyID uuid.UUID, bomVersionIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	costs := make(map[uuid.UUID]decimal.Decimal, len(bomVersionIDs))
	for _, id := range bomVersionIDs {
		cost, err := s.CalculateBOMUnitCost(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		// Versions without lines resolve to 0, never an absent entry.
		costs[id] = cost
	}
	return costs, nil
}

// buildableForLine is floor(available / requiredPerUnit), floored at zero.
func buildableForLine(available, requiredPerUnit decimal.Decimal) int64 {
	if !requiredPerUnit.IsPositive() {
		return 0
	}
	units := available.Div(requiredPerUnit).Floor().IntPart()
	if units < 0 {
		return 0
	}
	return units
}

func (s *bomService) CalculateMaxBuildableUnits(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (*int64, error) {
	version, err := s.bomRepo.FindActiveBySKU(ctx, companyID, skuID)
	if err != nil {
		return nil, err
	}
	if version == nil || len(version.Lines) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(version.Lines))
	for _, line := range version.Lines {
		ids = append(ids, line.ComponentID)
	}
	balances, err := s.txRepo.SumQuantities(ctx, companyID, ids, locationID)
	if err != nil {
		return nil, err
	}

	var min int64
	for i, line := range version.Lines {
		units := buildableForLine(balances[line.ComponentID], line.QuantityPerUnit)
		if i == 0 || units < min {
			min = units
		}
	}
	return &min, nil
}

func (s *bomService) CalculateLimitingFactors(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) ([]LimitingFactor, error) {
	version, err := s.bomRepo.FindActiveBySKU(ctx, companyID, skuID)
	if err != nil {
		return nil, err
	}
	if version == nil || len(version.Lines) == 0 {
		return []LimitingFactor{}, nil
	}

	components, err := s.componentsByID(ctx, companyID, version.Lines)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(version.Lines))
	for _, line := range version.Lines {
		ids = append(ids, line.ComponentID)
	}
	balances, err := s.txRepo.SumQuantities(ctx, companyID, ids, locationID)
	if err != nil {
		return nil, err
	}

	factors := make([]LimitingFactor, 0, len(version.Lines))
	for _, line := range version.Lines {
		component := components[line.ComponentID]
		available := balances[line.ComponentID]
		factors = append(factors, LimitingFactor{
			ComponentID:     line.ComponentID,
			ComponentName:   component.Name,
			SKUCode:         component.SKUCode,
			Available:       available,
			RequiredPerUnit: line.QuantityPerUnit,
			BuildableUnits:  buildableForLine(available, line.QuantityPerUnit),
		})
	}

	// Binding constraints first.
	sort.Slice(factors, func(i, j int) bool {
		return factors[i].BuildableUnits < factors[j].BuildableUnits
	})
	return factors, nil
}
