package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"
	ws "skustack/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReorderWarningMultiplier is the default band above the reorder point that
// classifies as warning rather than critical.
var ReorderWarningMultiplier = decimal.NewFromFloat(1.5)

// CalculateReorderStatus classifies quantity on hand against the reorder
// point. A reorder point of zero disables tracking and always reads ok.
// The warning boundary is inclusive.
func CalculateReorderStatus(quantityOnHand, reorderPoint, warningMultiplier decimal.Decimal) string {
	if reorderPoint.IsZero() {
		return model.ReorderStatusOK
	}
	if quantityOnHand.LessThanOrEqual(reorderPoint) {
		return model.ReorderStatusCritical
	}
	if quantityOnHand.LessThanOrEqual(reorderPoint.Mul(warningMultiplier)) {
		return model.ReorderStatusWarning
	}
	return model.ReorderStatusOK
}

// DTOs

type ReceiptRequest struct {
	ComponentID         string           `json:"component_id" binding:"required"`
	Quantity            decimal.Decimal  `json:"quantity" binding:"required"`
	Date                time.Time        `json:"date"`
	Supplier            string           `json:"supplier"`
	CostPerUnit         *decimal.Decimal `json:"cost_per_unit"`
	UpdateComponentCost bool             `json:"update_component_cost"`
	LocationID          string           `json:"location_id"`
	LotNumber           string           `json:"lot_number"`
	ExpiryDate          *time.Time       `json:"expiry_date"`
	Notes               string           `json:"notes"`
}

type AdjustmentRequest struct {
	ComponentID string          `json:"component_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"` // signed: caller supplies direction
	Reason      string          `json:"reason" binding:"required"`
	LocationID  string          `json:"location_id"`
	Date        time.Time       `json:"date"`
}

type InitialRequest struct {
	ComponentID    string           `json:"component_id" binding:"required"`
	Quantity       decimal.Decimal  `json:"quantity" binding:"required"`
	CostPerUnit    *decimal.Decimal `json:"cost_per_unit"`
	LocationID     string           `json:"location_id"`
	AllowOverwrite bool             `json:"allow_overwrite"`
}

type TransactionLineInput struct {
	ComponentID    string           `json:"component_id" binding:"required"`
	LocationID     string           `json:"location_id" binding:"required"`
	QuantityChange decimal.Decimal  `json:"quantity_change" binding:"required"`
	CostPerUnit    *decimal.Decimal `json:"cost_per_unit"`
}

type UpdateTransactionRequest struct {
	Date  *time.Time             `json:"date"`
	Notes *string                `json:"notes"`
	Lines []TransactionLineInput `json:"lines" binding:"required,min=1,dive"`
}

type LotResponse struct {
	ID          uuid.UUID       `json:"id"`
	LotNumber   string          `json:"lot_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	Balance     decimal.Decimal `json:"balance"`
	Status      string          `json:"status"`
}

// StockEvent is pushed to websocket clients after a committed ledger write.
type StockEvent struct {
	Event       string `json:"event"`
	ComponentID string `json:"component_id,omitempty"`
	SKUID       string `json:"sku_id,omitempty"`
	TxType      string `json:"tx_type"`
}

// LedgerService creates the transactions that move component balances and
// answers balance queries. Every mutation runs inside one database
// transaction: state reads, line inserts and audit rows commit together.
type LedgerService interface {
	CreateReceiptTransaction(ctx context.Context, companyID uuid.UUID, userID string, req ReceiptRequest) (*model.Transaction, error)
	CreateAdjustmentTransaction(ctx context.Context, companyID uuid.UUID, userID string, req AdjustmentRequest) (*model.Transaction, error)
	CreateInitialTransaction(ctx context.Context, companyID uuid.UUID, userID string, req InitialRequest) (*model.Transaction, error)

	GetComponentQuantity(ctx context.Context, companyID, componentID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error)
	GetComponentQuantities(ctx context.Context, companyID uuid.UUID, componentIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	GetTransaction(ctx context.Context, companyID uuid.UUID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, companyID uuid.UUID, page, limit int, txType string) ([]model.Transaction, int64, error)
	UpdateTransaction(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateTransactionRequest) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, companyID uuid.UUID, userID, id string) error

	ListLots(ctx context.Context, companyID uuid.UUID, componentID string) ([]LotResponse, error)
}

type ledgerService struct {
	componentRepo repository.ComponentRepository
	locationRepo  repository.LocationRepository
	lotRepo       repository.LotRepository
	txRepo        repository.TransactionRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewLedgerService(
	componentRepo repository.ComponentRepository,
	locationRepo repository.LocationRepository,
	lotRepo repository.LotRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) LedgerService {
	return &ledgerService{
		componentRepo: componentRepo,
		locationRepo:  locationRepo,
		lotRepo:       lotRepo,
		txRepo:        txRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

func parseUserID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}

func (s *ledgerService) notify(companyID uuid.UUID, event StockEvent) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.hub.Broadcast <- ws.Event{CompanyID: companyID.String(), Payload: payload}
}

// resolveLocation returns the referenced location or the company default
// warehouse when the id is empty.
func (s *ledgerService) resolveLocation(ctx context.Context, companyID uuid.UUID, locationID string) (*model.Location, error) {
	if locationID == "" {
		return s.locationRepo.GetOrCreateDefault(ctx, companyID, model.LocationTypeWarehouse)
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

func (s *ledgerService) CreateReceiptTransaction(ctx context.Context, companyID uuid.UUID, userID string, req ReceiptRequest) (*model.Transaction, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity", "receipt quantity must be positive")
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		return nil, apperror.Validation("component_id", "invalid component id")
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
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

		location, locErr := s.resolveLocation(txCtx, companyID, req.LocationID)
		if locErr != nil {
			return locErr
		}

		var lotID *uuid.UUID
		if req.LotNumber != "" {
			lot, lotErr := s.lotRepo.FindOrCreate(txCtx, companyID, component.ID, req.LotNumber, req.ExpiryDate)
			if lotErr != nil {
				return lotErr
			}
			if lotErr := s.lotRepo.AddReceived(txCtx, lot.ID, req.Quantity); lotErr != nil {
				return lotErr
			}
			lotID = &lot.ID
		}

		tx := &model.Transaction{
			CompanyID: companyID,
			Type:      model.TxTypeReceipt,
			Date:      date,
			Supplier:  req.Supplier,
			Notes:     req.Notes,
			Status:    model.TxStatusApproved,
			CreatedBy: parseUserID(userID),
			Lines: []model.TransactionLine{{
				ComponentID:    component.ID,
				LocationID:     location.ID,
				QuantityChange: req.Quantity,
				CostPerUnit:    req.CostPerUnit,
				LotID:          lotID,
			}},
		}
		if createErr := s.txRepo.Create(txCtx, tx); createErr != nil {
			return createErr
		}

		// Cost policy on receipt is replace, not weighted average.
		if req.CostPerUnit != nil && req.UpdateComponentCost {
			component.CostPerUnit = *req.CostPerUnit
			if updateErr := s.componentRepo.Update(txCtx, component); updateErr != nil {
				return updateErr
			}
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

	s.notify(companyID, StockEvent{Event: "stock_changed", ComponentID: req.ComponentID, TxType: model.TxTypeReceipt})
	return created, nil
}

func (s *ledgerService) CreateAdjustmentTransaction(ctx context.Context, companyID uuid.UUID, userID string, req AdjustmentRequest) (*model.Transaction, error) {
	if req.Quantity.IsZero() {
		return nil, apperror.Validation("quantity", "adjustment quantity must be non-zero")
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		return nil, apperror.Validation("component_id", "invalid component id")
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
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

		location, locErr := s.resolveLocation(txCtx, companyID, req.LocationID)
		if locErr != nil {
			return locErr
		}

		tx := &model.Transaction{
			CompanyID: companyID,
			Type:      model.TxTypeAdjustment,
			Date:      date,
			Notes:     req.Reason,
			Status:    model.TxStatusApproved,
			CreatedBy: parseUserID(userID),
			Lines: []model.TransactionLine{{
				ComponentID:    component.ID,
				LocationID:     location.ID,
				QuantityChange: req.Quantity,
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

	s.notify(companyID, StockEvent{Event: "stock_changed", ComponentID: req.ComponentID, TxType: model.TxTypeAdjustment})
	return created, nil
}

// CreateInitialTransaction posts an opening balance. At most one initial
// transaction may reference a component; a duplicate is rejected unless
// AllowOverwrite is set, in which case the prior one is deleted and
// replaced inside the same database transaction, with an audit row
// recording the overwrite.
func (s *ledgerService) CreateInitialTransaction(ctx context.Context, companyID uuid.UUID, userID string, req InitialRequest) (*model.Transaction, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity", "initial quantity must be positive")
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		return nil, apperror.Validation("component_id", "invalid component id")
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

		existing, existErr := s.txRepo.FindInitialByComponent(txCtx, companyID, component.ID)
		if existErr != nil {
			return existErr
		}
		if existing != nil {
			if !req.AllowOverwrite {
				return apperror.Conflict("initial transaction",
					"component "+component.SKUCode+" already has initial balance")
			}
			if delErr := s.txRepo.DeleteWithLines(txCtx, existing.ID); delErr != nil {
				return delErr
			}
			details, _ := json.Marshal(map[string]interface{}{
				"replaced_transaction_id": existing.ID.String(),
				"new_quantity":            req.Quantity.String(),
			})
			audit := &model.AuditLog{
				CompanyID:  companyID,
				UserID:     parseUserID(userID),
				Action:     model.ActionOverwriteInitial,
				EntityID:   component.ID.String(),
				EntityName: component.Name,
				Details:    string(details),
			}
			if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
				return auditErr
			}
		}

		location, locErr := s.resolveLocation(txCtx, companyID, req.LocationID)
		if locErr != nil {
			return locErr
		}

		tx := &model.Transaction{
			CompanyID: companyID,
			Type:      model.TxTypeInitial,
			Date:      time.Now(),
			Status:    model.TxStatusApproved,
			CreatedBy: parseUserID(userID),
			Lines: []model.TransactionLine{{
				ComponentID:    component.ID,
				LocationID:     location.ID,
				QuantityChange: req.Quantity,
				CostPerUnit:    req.CostPerUnit,
			}},
		}
		if createErr := s.txRepo.Create(txCtx, tx); createErr != nil {
			return createErr
		}

		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", ComponentID: req.ComponentID, TxType: model.TxTypeInitial})
	return created, nil
}

func (s *ledgerService) GetComponentQuantity(ctx context.Context, companyID, componentID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error) {
	return s.txRepo.SumQuantity(ctx, companyID, componentID, locationID)
}

func (s *ledgerService) GetComponentQuantities(ctx context.Context, companyID uuid.UUID, componentIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	return s.txRepo.SumQuantities(ctx, companyID, componentIDs, locationID)
}

func (s *ledgerService) GetTransaction(ctx context.Context, companyID uuid.UUID, id string) (*model.Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid transaction id")
	}
	tx, err := s.txRepo.FindByID(ctx, companyID, txID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("transaction", id)
		}
		return nil, err
	}
	return tx, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, companyID uuid.UUID, page, limit int, txType string) ([]model.Transaction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.txRepo.List(ctx, companyID, page, limit, txType)
}

// UpdateTransaction replaces the transaction's component lines wholesale
// within one atomic scope: the old effect disappears and the new one
// appears with no intermediate state visible to concurrent readers.
// Finished-goods lines are not editable here; a build keeps its recorded
// production across edits.
func (s *ledgerService) UpdateTransaction(ctx context.Context, companyID uuid.UUID, userID, id string, req UpdateTransactionRequest) (*model.Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid transaction id")
	}

	lines := make([]model.TransactionLine, 0, len(req.Lines))
	for _, input := range req.Lines {
		componentID, parseErr := uuid.Parse(input.ComponentID)
		if parseErr != nil {
			return nil, apperror.Validation("component_id", "invalid component id")
		}
		locationID, parseErr := uuid.Parse(input.LocationID)
		if parseErr != nil {
			return nil, apperror.Validation("location_id", "invalid location id")
		}
		lines = append(lines, model.TransactionLine{
			ComponentID:    componentID,
			LocationID:     locationID,
			QuantityChange: input.QuantityChange,
			CostPerUnit:    input.CostPerUnit,
		})
	}

	var updated *model.Transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tx, findErr := s.txRepo.FindByID(txCtx, companyID, txID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("transaction", id)
			}
			return findErr
		}
		if tx.Status != model.TxStatusApproved {
			return apperror.Validation("status", "only approved transactions can be edited")
		}

		for i := range lines {
			if _, compErr := s.componentRepo.FindByID(txCtx, companyID, lines[i].ComponentID); compErr != nil {
				if errors.Is(compErr, gorm.ErrRecordNotFound) {
					return apperror.NotFound("component", lines[i].ComponentID.String())
				}
				return compErr
			}
			if _, locErr := s.locationRepo.FindByID(txCtx, companyID, lines[i].LocationID); locErr != nil {
				if errors.Is(locErr, gorm.ErrRecordNotFound) {
					return apperror.NotFound("location", lines[i].LocationID.String())
				}
				return locErr
			}
		}

		if replaceErr := s.txRepo.ReplaceLines(txCtx, tx.ID, lines); replaceErr != nil {
			return replaceErr
		}
		if req.Date != nil {
			tx.Date = *req.Date
		}
		if req.Notes != nil {
			tx.Notes = *req.Notes
		}
		if updateErr := s.txRepo.Update(txCtx, tx); updateErr != nil {
			return updateErr
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			CompanyID: companyID,
			UserID:    parseUserID(userID),
			Action:    model.ActionUpdateTransaction,
			EntityID:  tx.ID.String(),
			Details:   string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return auditErr
		}

		reloaded, reloadErr := s.txRepo.FindByID(txCtx, companyID, tx.ID)
		if reloadErr != nil {
			return reloadErr
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", TxType: updated.Type})
	return updated, nil
}

func (s *ledgerService) DeleteTransaction(ctx context.Context, companyID uuid.UUID, userID, id string) error {
	txID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("id", "invalid transaction id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tx, findErr := s.txRepo.FindByID(txCtx, companyID, txID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("transaction", id)
			}
			return findErr
		}

		if delErr := s.txRepo.DeleteWithLines(txCtx, tx.ID); delErr != nil {
			return delErr
		}

		details, _ := json.Marshal(map[string]interface{}{"type": tx.Type, "date": tx.Date})
		audit := &model.AuditLog{
			CompanyID: companyID,
			UserID:    parseUserID(userID),
			Action:    model.ActionDeleteTransaction,
			EntityID:  tx.ID.String(),
			Details:   string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return err
	}

	s.notify(companyID, StockEvent{Event: "stock_changed", TxType: "delete"})
	return nil
}

func (s *ledgerService) ListLots(ctx context.Context, companyID uuid.UUID, componentID string) ([]LotResponse, error) {
	id, err := uuid.Parse(componentID)
	if err != nil {
		return nil, apperror.Validation("component_id", "invalid component id")
	}
	if _, err := s.componentRepo.FindByID(ctx, companyID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("component", componentID)
		}
		return nil, err
	}

	lots, err := s.lotRepo.ListByComponent(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := make([]LotResponse, 0, len(lots))
	for i := range lots {
		balance, balErr := s.lotRepo.Balance(ctx, lots[i].ID)
		if balErr != nil {
			return nil, balErr
		}
		res = append(res, LotResponse{
			ID:          lots[i].ID,
			LotNumber:   lots[i].LotNumber,
			ExpiryDate:  lots[i].ExpiryDate,
			ReceivedQty: lots[i].ReceivedQty,
			Balance:     balance,
			Status:      lots[i].Status(now),
		})
	}
	return res, nil
}
