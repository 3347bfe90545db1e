package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"
	ws "skustack/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type BuildRequest struct {
	SKUID                      string `json:"sku_id" binding:"required"`
	BOMVersionID               string `json:"bom_version_id"` // empty: use the SKU's active version
	UnitsToBuild               int64  `json:"units_to_build" binding:"required,gt=0"`
	LocationID                 string `json:"location_id"`
	AllowInsufficientInventory bool   `json:"allow_insufficient_inventory"`
	Notes                      string `json:"notes"`
}

type BuildResult struct {
	Transaction *model.Transaction `json:"transaction"`
	Warning     string             `json:"warning,omitempty"`
}

type TransferRequest struct {
	ComponentID    string          `json:"component_id" binding:"required"`
	FromLocationID string          `json:"from_location_id" binding:"required"`
	ToLocationID   string          `json:"to_location_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	Notes          string          `json:"notes"`
}

type OutboundRequest struct {
	SKUID        string          `json:"sku_id" binding:"required"`
	LocationID   string          `json:"location_id"` // empty: company finished-goods location
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	SalesChannel string          `json:"sales_channel"`
	Notes        string          `json:"notes"`
}

// StockService owns the transactions with multi-line effects: builds
// consume components and produce finished goods, transfers pair a debit
// and a credit across locations, outbounds decrement finished goods.
//
// The build/outbound sufficiency check is read-then-write inside one
// database transaction without a pessimistic balance lock, so two
// concurrent builds can each pass the check before either commits. Known
// gap, accepted.
type StockService interface {
	CreateBuildTransaction(ctx context.Context, companyID uuid.UUID, userID string, req BuildRequest) (*BuildResult, error)
	CreateTransferTransaction(ctx context.Context, companyID uuid.UUID, userID string, req TransferRequest) (*model.Transaction, error)
	CreateOutboundTransaction(ctx context.Context, companyID uuid.UUID, userID string, req OutboundRequest) (*model.Transaction, error)
	// CheckInsufficientInventory is the read-only pre-flight the UI uses
	// to confirm a short build instead of failing blind.
	CheckInsufficientInventory(ctx context.Context, companyID uuid.UUID, bomVersionID string, unitsToBuild int64, locationID *uuid.UUID) ([]apperror.ShortfallItem, error)
	GetFinishedGoodsQuantity(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error)
}

type stockService struct {
	componentRepo repository.ComponentRepository
	locationRepo  repository.LocationRepository
	skuRepo       repository.SKURepository
	bomRepo       repository.BOMVersionRepository
	txRepo        repository.TransactionRepository
	companyRepo   repository.CompanyRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewStockService(
	componentRepo repository.ComponentRepository,
	locationRepo repository.LocationRepository,
	skuRepo repository.SKURepository,
	bomRepo repository.BOMVersionRepository,
	txRepo repository.TransactionRepository,
	companyRepo repository.CompanyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockService {
	return &stockService{
		componentRepo: componentRepo,
		locationRepo:  locationRepo,
		skuRepo:       skuRepo,
		bomRepo:       bomRepo,
		txRepo:        txRepo,
		companyRepo:   companyRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

func (s *stockService) notify(companyID uuid.UUID, event StockEvent) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.hub.Broadcast <- ws.Event{CompanyID: companyID.String(), Payload: payload}
}

func (s *stockService) resolveLocation(ctx context.Context, companyID uuid.UUID, locationID, locationType string) (*model.Location, error) {
	if locationID == "" {
		return s.locationRepo.GetOrCreateDefault(ctx, companyID, locationType)
	}
	id, err := uuid.Parse(locationID)
	if err != nil {
		return nil, apperror.Validation("location_id", "invalid location id")
	}
	location, err := s.locationRepo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("location", locationID)
		}
		return nil, err
	}
	return location, nil
}

// shortfalls computes which BOM components cannot cover unitsToBuild at
// the given location.
func (s *stockService) shortfalls(ctx context.Context, companyID uuid.UUID, version *model.BOMVersion, unitsToBuild int64, locationID *uuid.UUID) ([]apperror.ShortfallItem, error) {
	ids := make([]uuid.UUID, 0, len(version.Lines))
	for _, line := range version.Lines {
		ids = append(ids, line.ComponentID)
	}
	components, err := s.componentRepo.FindByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(components))
	for _, c := range components {
		names[c.ID] = c.Name
	}
	balances, err := s.txRepo.SumQuantities(ctx, companyID, ids, locationID)
	if err != nil {
		return nil, err
	}

	units := decimal.NewFromInt(unitsToBuild)
	var items []apperror.ShortfallItem
	for _, line := range version.Lines {
		required := line.QuantityPerUnit.Mul(units)
		available := balances[line.ComponentID]
		if available.LessThan(required) {
			items = append(items, apperror.ShortfallItem{
				ComponentID:   line.ComponentID,
				ComponentName: names[line.ComponentID],
				Required:      required,
				Available:     available,
				Shortfall:     required.Sub(available),
			})
		}
	}
	return items, nil
}

func (s *stockService) CreateBuildTransaction(ctx context.Context, companyID uuid.UUID, userID string, req BuildRequest) (*BuildResult, error) {
	if req.UnitsToBuild <= 0 {
		return nil, apperror.Validation("units_to_build", "units to build must be positive")
	}
	skuID, err := uuid.Parse(req.SKUID)
	if err != nil {
		return nil, apperror.Validation("sku_id", "invalid sku id")
	}

	var result BuildResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sku, findErr := s.skuRepo.FindByID(txCtx, companyID, skuID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("sku", req.SKUID)
			}
			return findErr
		}

		var version *model.BOMVersion
		if req.BOMVersionID != "" {
			versionID, parseErr := uuid.Parse(req.BOMVersionID)
			if parseErr != nil {
				return apperror.Validation("bom_version_id", "invalid bom version id")
			}
			v, verErr := s.bomRepo.FindByID(txCtx, companyID, versionID)
			if verErr != nil {
				if errors.Is(verErr, gorm.ErrRecordNotFound) {
					return apperror.NotFound("bom version", req.BOMVersionID)
				}
				return verErr
			}
			if v.SKUID != sku.ID {
				return apperror.Validation("bom_version_id", "bom version does not belong to sku")
			}
			version = v
		} else {
			v, verErr := s.bomRepo.FindActiveBySKU(txCtx, companyID, sku.ID)
			if verErr != nil {
				return verErr
			}
			if v == nil {
				return apperror.NotFound("active bom version for sku", req.SKUID)
			}
			version = v
		}
		if len(version.Lines) == 0 {
			return apperror.Validation("bom_version_id", "bom version has no lines")
		}

		componentLocation, locErr := s.resolveLocation(txCtx, companyID, req.LocationID, model.LocationTypeWarehouse)
		if locErr != nil {
			return locErr
		}
		fgLocation, locErr := s.locationRepo.GetOrCreateDefault(txCtx, companyID, model.LocationTypeFinishedGoods)
		if locErr != nil {
			return locErr
		}

		items, shortErr := s.shortfalls(txCtx, companyID, version, req.UnitsToBuild, &componentLocation.ID)
		if shortErr != nil {
			return shortErr
		}
		if len(items) > 0 && !req.AllowInsufficientInventory {
			return &apperror.InsufficientInventoryError{Items: items}
		}
		if len(items) > 0 {
			result.Warning = fmt.Sprintf("built with insufficient inventory for %d component(s); negative balances recorded", len(items))
		}

		ids := make([]uuid.UUID, 0, len(version.Lines))
		for _, line := range version.Lines {
			ids = append(ids, line.ComponentID)
		}
		components, compErr := s.componentRepo.FindByIDs(txCtx, companyID, ids)
		if compErr != nil {
			return compErr
		}
		costs := make(map[uuid.UUID]decimal.Decimal, len(components))
		for _, c := range components {
			costs[c.ID] = c.CostPerUnit
		}
		for _, line := range version.Lines {
			if _, ok := costs[line.ComponentID]; !ok {
				return apperror.NotFound("component", line.ComponentID.String())
			}
		}

		// Cost snapshots are taken now, from the BOM at build time.
		unitCost := decimal.Zero
		for _, line := range version.Lines {
			unitCost = unitCost.Add(line.QuantityPerUnit.Mul(costs[line.ComponentID]))
		}
		units := decimal.NewFromInt(req.UnitsToBuild)
		totalCost := unitCost.Mul(units)

		lines := make([]model.TransactionLine, 0, len(version.Lines))
		for _, line := range version.Lines {
			cost := costs[line.ComponentID]
			lines = append(lines, model.TransactionLine{
				ComponentID:    line.ComponentID,
				LocationID:     componentLocation.ID,
				QuantityChange: line.QuantityPerUnit.Mul(units).Neg(),
				CostPerUnit:    &cost,
			})
		}

		tx := &model.Transaction{
			CompanyID:    companyID,
			Type:         model.TxTypeBuild,
			Date:         time.Now(),
			SKUID:        &sku.ID,
			BOMVersionID: &version.ID,
			Notes:        req.Notes,
			Status:       model.TxStatusApproved,
			CreatedBy:    parseUserID(userID),
			UnitCost:     &unitCost,
			TotalCost:    &totalCost,
			Lines:        lines,
			FinishedGoodsLines: []model.FinishedGoodsLine{{
				SKUID:          sku.ID,
				LocationID:     fgLocation.ID,
				QuantityChange: units,
			}},
		}
		if createErr := s.txRepo.Create(txCtx, tx); createErr != nil {
			return createErr
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateTransaction,
			EntityID:   tx.ID.String(),
			EntityName: sku.InternalCode,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return auditErr
		}

		result.Transaction = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", SKUID: req.SKUID, TxType: model.TxTypeBuild})
	return &result, nil
}

func (s *stockService) CreateTransferTransaction(ctx context.Context, companyID uuid.UUID, userID string, req TransferRequest) (*model.Transaction, error) {
	// All input checks run before any storage access.
	if !req.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity", "transfer quantity must be positive")
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, apperror.Validation("to_location_id", "cannot transfer to the same location")
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		return nil, apperror.Validation("component_id", "invalid component id")
	}
	fromID, err := uuid.Parse(req.FromLocationID)
	if err != nil {
		return nil, apperror.Validation("from_location_id", "invalid location id")
	}
	toID, err := uuid.Parse(req.ToLocationID)
	if err != nil {
		return nil, apperror.Validation("to_location_id", "invalid location id")
	}

	var created *model.Transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		component, findErr := s.componentRepo.FindByID(txCtx, companyID, componentID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("component", req.ComponentID)
			}
			return findErr
		}

		from, locErr := s.locationRepo.FindByID(txCtx, companyID, fromID)
		if locErr != nil {
			if errors.Is(locErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("location", req.FromLocationID)
			}
			return locErr
		}
		to, locErr := s.locationRepo.FindByID(txCtx, companyID, toID)
		if locErr != nil {
			if errors.Is(locErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("location", req.ToLocationID)
			}
			return locErr
		}
		if !from.IsActive || !to.IsActive {
			return apperror.Validation("location", "both locations must be active")
		}

		available, sumErr := s.txRepo.SumQuantity(txCtx, companyID, component.ID, &from.ID)
		if sumErr != nil {
			return sumErr
		}
		if available.LessThan(req.Quantity) {
			return &apperror.InsufficientInventoryError{Items: []apperror.ShortfallItem{{
				ComponentID:   component.ID,
				ComponentName: component.Name,
				Required:      req.Quantity,
				Available:     available,
				Shortfall:     req.Quantity.Sub(available),
			}}}
		}

		// Exactly two lines netting to zero for the component.
		tx := &model.Transaction{
			CompanyID:      companyID,
			Type:           model.TxTypeTransfer,
			Date:           time.Now(),
			FromLocationID: &from.ID,
			ToLocationID:   &to.ID,
			Notes:          req.Notes,
			Status:         model.TxStatusApproved,
			CreatedBy:      parseUserID(userID),
			Lines: []model.TransactionLine{
				{
					ComponentID:    component.ID,
					LocationID:     from.ID,
					QuantityChange: req.Quantity.Neg(),
				},
				{
					ComponentID:    component.ID,
					LocationID:     to.ID,
					QuantityChange: req.Quantity,
				},
			},
		}
		if createErr := s.txRepo.Create(txCtx, tx); createErr != nil {
			return createErr
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateTransaction,
			EntityID:   tx.ID.String(),
			EntityName: component.Name,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return auditErr
		}

		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", ComponentID: req.ComponentID, TxType: model.TxTypeTransfer})
	return created, nil
}

func (s *stockService) CreateOutboundTransaction(ctx context.Context, companyID uuid.UUID, userID string, req OutboundRequest) (*model.Transaction, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity", "outbound quantity must be positive")
	}
	skuID, err := uuid.Parse(req.SKUID)
	if err != nil {
		return nil, apperror.Validation("sku_id", "invalid sku id")
	}

	var created *model.Transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sku, findErr := s.skuRepo.FindByID(txCtx, companyID, skuID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("sku", req.SKUID)
			}
			return findErr
		}

		location, locErr := s.resolveLocation(txCtx, companyID, req.LocationID, model.LocationTypeFinishedGoods)
		if locErr != nil {
			return locErr
		}

		available, sumErr := s.txRepo.SumFinishedGoods(txCtx, companyID, sku.ID, &location.ID)
		if sumErr != nil {
			return sumErr
		}
		if available.LessThan(req.Quantity) {
			company, compErr := s.companyRepo.FindByID(txCtx, companyID)
			if compErr != nil {
				return compErr
			}
			if !company.AllowNegativeInventory {
				return &apperror.InsufficientInventoryError{Items: []apperror.ShortfallItem{{
					ComponentID:   sku.ID,
					ComponentName: sku.InternalCode,
					Required:      req.Quantity,
					Available:     available,
					Shortfall:     req.Quantity.Sub(available),
				}}}
			}
		}

		tx := &model.Transaction{
			CompanyID:    companyID,
			Type:         model.TxTypeOutbound,
			Date:         time.Now(),
			SKUID:        &sku.ID,
			SalesChannel: req.SalesChannel,
			Notes:        req.Notes,
			Status:       model.TxStatusApproved,
			CreatedBy:    parseUserID(userID),
			FinishedGoodsLines: []model.FinishedGoodsLine{{
				SKUID:          sku.ID,
				LocationID:     location.ID,
				QuantityChange: req.Quantity.Neg(),
			}},
		}
		if createErr := s.txRepo.Create(txCtx, tx); createErr != nil {
			return createErr
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			CompanyID:  companyID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateTransaction,
			EntityID:   tx.ID.String(),
			EntityName: sku.InternalCode,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return auditErr
		}

		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", SKUID: req.SKUID, TxType: model.TxTypeOutbound})
	return created, nil
}

func (s *stockService) CheckInsufficientInventory(ctx context.Context, companyID uuid.UUID, bomVersionID string, unitsToBuild int64, locationID *uuid.UUID) ([]apperror.ShortfallItem, error) {
	if unitsToBuild <= 0 {
		return nil, apperror.Validation("units_to_build", "units to build must be positive")
	}
	versionID, err := uuid.Parse(bomVersionID)
	if err != nil {
		return nil, apperror.Validation("bom_version_id", "invalid bom version id")
	}
	version, err := s.bomRepo.FindByID(ctx, companyID, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("bom version", bomVersionID)
		}
		return nil, err
	}

	loc := locationID
	if loc == nil {
		defaultLoc, locErr := s.locationRepo.GetOrCreateDefault(ctx, companyID, model.LocationTypeWarehouse)
		if locErr != nil {
			return nil, locErr
		}
		loc = &defaultLoc.ID
	}

	items, err := s.shortfalls(ctx, companyID, version, unitsToBuild, loc)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []apperror.ShortfallItem{}
	}
	return items, nil
}

func (s *stockService) GetFinishedGoodsQuantity(ctx context.Context, companyID, skuID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error) {
	return s.txRepo.SumFinishedGoods(ctx, companyID, skuID, locationID)
}
