package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var componentCSVHeader = []string{
	"sku_code", "name", "category", "unit_of_measure",
	"cost_per_unit", "reorder_point", "lead_time_days", "quantity_on_hand",
}

// ImportRowResult reports the outcome of one CSV row. Rows fail
// individually; a bad row never aborts the rest of the file.
type ImportRowResult struct {
	Row     int    `json:"row"`
	SKUCode string `json:"sku_code"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	ImportStatusCreated = "created"
	ImportStatusUpdated = "updated"
	ImportStatusSkipped = "skipped"
	ImportStatusFailed  = "failed"
)

// ExportService moves component data across the CSV boundary.
type ExportService interface {
	ExportComponentsCSV(ctx context.Context, companyID uuid.UUID, w io.Writer) error
	ImportComponentsCSV(ctx context.Context, companyID uuid.UUID, userID string, r io.Reader, allowOverwrite bool) ([]ImportRowResult, error)
}

type exportService struct {
	componentRepo repository.ComponentRepository
	txRepo        repository.TransactionRepository
	auditRepo     repository.AuditRepository
	ledgerService LedgerService
	txManager     repository.TransactionManager
}

func NewExportService(
	componentRepo repository.ComponentRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditRepository,
	ledgerService LedgerService,
	txManager repository.TransactionManager,
) ExportService {
	return &exportService{
		componentRepo: componentRepo,
		txRepo:        txRepo,
		auditRepo:     auditRepo,
		ledgerService: ledgerService,
		txManager:     txManager,
	}
}

// ExportComponentsCSV writes every component, active and inactive, with its
// current on-hand balance. encoding/csv handles quoting, so commas,
// quotes and newlines in names survive a round trip.
func (s *exportService) ExportComponentsCSV(ctx context.Context, companyID uuid.UUID, w io.Writer) error {
	components, _, err := s.componentRepo.List(ctx, companyID, 1, 100000, "", true)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}
	quantities, err := s.txRepo.SumQuantities(ctx, companyID, ids, nil)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(componentCSVHeader); err != nil {
		return err
	}
	for i := range components {
		c := &components[i]
		record := []string{
			c.SKUCode,
			c.Name,
			c.Category,
			c.UnitOfMeasure,
			c.CostPerUnit.String(),
			c.ReorderPoint.String(),
			fmt.Sprintf("%d", c.LeadTimeDays),
			quantities[c.ID].String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportComponentsCSV reads the same layout ExportComponentsCSV produces.
// Unknown sku codes become new components; quantity_on_hand, when
// positive, is posted as that component's initial balance. A component
// that already has an initial transaction keeps it unless allowOverwrite
// is set.
func (s *exportService) ImportComponentsCSV(ctx context.Context, companyID uuid.UUID, userID string, r io.Reader, allowOverwrite bool) ([]ImportRowResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperror.Validation("file", "empty or unreadable csv")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"sku_code", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, apperror.Validation("file", "missing required column "+required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var results []ImportRowResult
	row := 1
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		row++
		if readErr != nil {
			results = append(results, ImportRowResult{Row: row, Status: ImportStatusFailed, Message: readErr.Error()})
			continue
		}

		result := s.importRow(ctx, companyID, userID, record, field, allowOverwrite)
		result.Row = row
		results = append(results, result)
	}

	details, _ := json.Marshal(map[string]int{"rows": len(results)})
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		CompanyID:  companyID,
		UserID:     parseUserID(userID),
		Action:     model.ActionImportComponents,
		EntityName: "components.csv",
		Details:    string(details),
	})
	return results, nil
}

func (s *exportService) importRow(ctx context.Context, companyID uuid.UUID, userID string, record []string, field func([]string, string) string, allowOverwrite bool) ImportRowResult {
	skuCode := field(record, "sku_code")
	name := field(record, "name")
	if skuCode == "" || name == "" {
		return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: "sku_code and name are required"}
	}

	costPerUnit, err := parseDecimalField(field(record, "cost_per_unit"))
	if err != nil {
		return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: "invalid cost_per_unit"}
	}
	reorderPoint, err := parseDecimalField(field(record, "reorder_point"))
	if err != nil {
		return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: "invalid reorder_point"}
	}
	quantity, err := parseDecimalField(field(record, "quantity_on_hand"))
	if err != nil {
		return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: "invalid quantity_on_hand"}
	}

	leadTimeDays := 0
	if raw := field(record, "lead_time_days"); raw != "" {
		if _, scanErr := fmt.Sscanf(raw, "%d", &leadTimeDays); scanErr != nil {
			return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: "invalid lead_time_days"}
		}
	}

	status := ImportStatusUpdated
	component, err := s.componentRepo.FindBySKUCode(ctx, companyID, skuCode)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: err.Error()}
		}
		unitOfMeasure := field(record, "unit_of_measure")
		if unitOfMeasure == "" {
			unitOfMeasure = "each"
		}
		component = &model.Component{
			CompanyID:     companyID,
			SKUCode:       skuCode,
			Name:          name,
			Category:      field(record, "category"),
			UnitOfMeasure: unitOfMeasure,
			CostPerUnit:   costPerUnit,
			ReorderPoint:  reorderPoint,
			LeadTimeDays:  leadTimeDays,
			IsActive:      true,
		}
		if createErr := s.componentRepo.Create(ctx, component); createErr != nil {
			return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: createErr.Error()}
		}
		status = ImportStatusCreated
	} else {
		component.Name = name
		if category := field(record, "category"); category != "" {
			component.Category = category
		}
		component.CostPerUnit = costPerUnit
		component.ReorderPoint = reorderPoint
		component.LeadTimeDays = leadTimeDays
		if updateErr := s.componentRepo.Update(ctx, component); updateErr != nil {
			return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: updateErr.Error()}
		}
	}

	if quantity.IsPositive() {
		_, initErr := s.ledgerService.CreateInitialTransaction(ctx, companyID, userID, InitialRequest{
			ComponentID:    component.ID.String(),
			Quantity:       quantity,
			CostPerUnit:    &costPerUnit,
			AllowOverwrite: allowOverwrite,
		})
		if initErr != nil {
			if errors.Is(initErr, apperror.ErrConflict) {
				return ImportRowResult{SKUCode: skuCode, Status: ImportStatusSkipped, Message: "initial balance already recorded"}
			}
			return ImportRowResult{SKUCode: skuCode, Status: ImportStatusFailed, Message: initErr.Error()}
		}
	}

	return ImportRowResult{SKUCode: skuCode, Status: status}
}

func parseDecimalField(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
