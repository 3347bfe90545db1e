package service

import (
	"context"
	"strings"
	"testing"

	"skustack/internal/database"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a per-test in-memory sqlite database. The shared
// cache keeps the schema alive across the pooled connections gorm opens.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// testEnv wires the full service stack over one test database and one
// seeded company.
type testEnv struct {
	db *gorm.DB

	companyRepo   repository.CompanyRepository
	componentRepo repository.ComponentRepository
	locationRepo  repository.LocationRepository
	txRepo        repository.TransactionRepository
	skuRepo       repository.SKURepository
	bomRepo       repository.BOMVersionRepository

	ledger      LedgerService
	stock       StockService
	bom         BOMService
	sku         SKUService
	component   ComponentService
	attribution AttributionService
	export      ExportService

	company *model.Company
	userID  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)

	txManager := repository.NewTransactionManager(db)
	companyRepo := repository.NewCompanyRepository(db)
	componentRepo := repository.NewComponentRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	lotRepo := repository.NewLotRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	skuRepo := repository.NewSKURepository(db)
	bomRepo := repository.NewBOMVersionRepository(db)
	salesRepo := repository.NewSalesRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	ledger := NewLedgerService(componentRepo, locationRepo, lotRepo, txRepo, auditRepo, txManager, nil)

	env := &testEnv{
		db:            db,
		companyRepo:   companyRepo,
		componentRepo: componentRepo,
		locationRepo:  locationRepo,
		txRepo:        txRepo,
		skuRepo:       skuRepo,
		bomRepo:       bomRepo,
		ledger:        ledger,
		stock:         NewStockService(componentRepo, locationRepo, skuRepo, bomRepo, txRepo, companyRepo, auditRepo, txManager, nil),
		bom:           NewBOMService(componentRepo, bomRepo, txRepo),
		sku:           NewSKUService(skuRepo, bomRepo, componentRepo, auditRepo, txManager),
		component:     NewComponentService(componentRepo, txRepo, auditRepo, txManager),
		attribution:   NewAttributionService(salesRepo, txManager),
		export:        NewExportService(componentRepo, txRepo, auditRepo, ledger, txManager),
		userID:        uuid.NewString(),
	}
	env.company = env.createCompany(t, "Acme Goods")
	return env
}

func (e *testEnv) createCompany(t *testing.T, name string) *model.Company {
	t.Helper()
	company := &model.Company{Name: name}
	require.NoError(t, e.companyRepo.Create(context.Background(), company))
	return company
}

func (e *testEnv) createComponent(t *testing.T, companyID uuid.UUID, skuCode, name string, cost, reorderPoint decimal.Decimal) *model.Component {
	t.Helper()
	component := &model.Component{
		CompanyID:     companyID,
		SKUCode:       skuCode,
		Name:          name,
		UnitOfMeasure: "each",
		CostPerUnit:   cost,
		ReorderPoint:  reorderPoint,
		IsActive:      true,
	}
	require.NoError(t, e.componentRepo.Create(context.Background(), component))
	return component
}

// seedStock posts an initial-balance transaction so the component has the
// given on-hand quantity at the default warehouse.
func (e *testEnv) seedStock(t *testing.T, companyID uuid.UUID, componentID uuid.UUID, quantity decimal.Decimal) {
	t.Helper()
	_, err := e.ledger.CreateInitialTransaction(context.Background(), companyID, e.userID, InitialRequest{
		ComponentID: componentID.String(),
		Quantity:    quantity,
	})
	require.NoError(t, err)
}

// createSKUWithBOM creates a SKU with one active BOM version built from
// component/quantity pairs.
func (e *testEnv) createSKUWithBOM(t *testing.T, companyID uuid.UUID, code string, lines map[uuid.UUID]decimal.Decimal) (*model.SKU, *model.BOMVersion) {
	t.Helper()
	ctx := context.Background()

	sku, err := e.sku.CreateSKU(ctx, companyID, e.userID, CreateSKURequest{
		InternalCode: code,
		Name:         "SKU " + code,
	})
	require.NoError(t, err)

	inputs := make([]BOMLineInput, 0, len(lines))
	for componentID, qty := range lines {
		inputs = append(inputs, BOMLineInput{ComponentID: componentID.String(), QuantityPerUnit: qty})
	}
	version, err := e.sku.CreateBOMVersion(ctx, companyID, e.userID, CreateBOMVersionRequest{
		SKUID:       sku.ID.String(),
		VersionName: "v1",
		Lines:       inputs,
		Activate:    true,
	})
	require.NoError(t, err)

	return sku, version
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
