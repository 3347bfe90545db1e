package service

import (
	"context"
	"testing"

	"skustack/internal/apperror"
	"skustack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBuildTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	panel := env.createComponent(t, env.company.ID, "CMP-PANEL", "Panel", dec("12.00"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("100"))
	env.seedStock(t, env.company.ID, panel.ID, dec("30"))

	sku, _ := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID:  dec("2"),
		panel.ID: dec("1"),
	})

	result, err := env.stock.CreateBuildTransaction(ctx, env.company.ID, env.userID, BuildRequest{
		SKUID:        sku.ID.String(),
		UnitsToBuild: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	assert.Empty(t, result.Warning)

	// Component stock is consumed and finished goods produced atomically.
	boltBalance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, boltBalance.Equal(dec("80")), "bolt balance = %s", boltBalance)

	panelBalance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, panel.ID, nil)
	require.NoError(t, err)
	assert.True(t, panelBalance.Equal(dec("20")))

	fg, err := env.stock.GetFinishedGoodsQuantity(ctx, env.company.ID, sku.ID, nil)
	require.NoError(t, err)
	assert.True(t, fg.Equal(dec("10")))

	// Cost snapshot from the BOM at build time: 2*0.25 + 1*12 = 12.50.
	require.NotNil(t, result.Transaction.UnitCost)
	assert.True(t, result.Transaction.UnitCost.Equal(dec("12.5")))
	require.NotNil(t, result.Transaction.TotalCost)
	assert.True(t, result.Transaction.TotalCost.Equal(dec("125")))
}

func TestCreateBuildTransactionInsufficientInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("5"))

	sku, _ := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	_, err := env.stock.CreateBuildTransaction(ctx, env.company.ID, env.userID, BuildRequest{
		SKUID:        sku.ID.String(),
		UnitsToBuild: 10,
	})
	require.Error(t, err)

	var insufficient *apperror.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 1)
	item := insufficient.Items[0]
	assert.Equal(t, bolt.ID, item.ComponentID)
	assert.Equal(t, "Bolt", item.ComponentName)
	assert.True(t, item.Required.Equal(dec("20")))
	assert.True(t, item.Available.Equal(dec("5")))
	assert.True(t, item.Shortfall.Equal(dec("15")))

	// Nothing was written.
	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("5")))

	fg, err := env.stock.GetFinishedGoodsQuantity(ctx, env.company.ID, sku.ID, nil)
	require.NoError(t, err)
	assert.True(t, fg.IsZero())
}

func TestCreateBuildTransactionAllowInsufficient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("5"))

	sku, _ := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	result, err := env.stock.CreateBuildTransaction(ctx, env.company.ID, env.userID, BuildRequest{
		SKUID:                      sku.ID.String(),
		UnitsToBuild:               10,
		AllowInsufficientInventory: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warning)

	// The negative balance is recorded, not hidden.
	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("-15")), "balance = %s", balance)
}

func TestCheckInsufficientInventoryPreflight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("100"))

	_, version := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	// Sufficient: empty slice, never nil.
	items, err := env.stock.CheckInsufficientInventory(ctx, env.company.ID, version.ID.String(), 50, nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, err = env.stock.CheckInsufficientInventory(ctx, env.company.ID, version.ID.String(), 51, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Shortfall.Equal(dec("2")))

	// The pre-flight writes nothing.
	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100")))
}

func TestCreateTransferTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))
	env.seedStock(t, env.company.ID, component.ID, dec("50"))

	from, err := env.locationRepo.GetOrCreateDefault(ctx, env.company.ID, model.LocationTypeWarehouse)
	require.NoError(t, err)
	to := &model.Location{CompanyID: env.company.ID, Name: "Overflow", Type: model.LocationTypeWarehouse, IsActive: true}
	require.NoError(t, env.locationRepo.Create(ctx, to))

	tx, err := env.stock.CreateTransferTransaction(ctx, env.company.ID, env.userID, TransferRequest{
		ComponentID:    component.ID.String(),
		FromLocationID: from.ID.String(),
		ToLocationID:   to.ID.String(),
		Quantity:       dec("20"),
	})
	require.NoError(t, err)
	require.Len(t, tx.Lines, 2)

	// Exactly two lines netting to zero.
	net := tx.Lines[0].QuantityChange.Add(tx.Lines[1].QuantityChange)
	assert.True(t, net.IsZero())

	fromBalance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, &from.ID)
	require.NoError(t, err)
	assert.True(t, fromBalance.Equal(dec("30")))

	toBalance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, &to.ID)
	require.NoError(t, err)
	assert.True(t, toBalance.Equal(dec("20")))

	// Total across locations is conserved.
	total, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("50")))
}

func TestCreateTransferValidatesBeforeStorage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	locationID := uuid.NewString()

	// Same source and destination fails before any storage access.
	_, err := env.stock.CreateTransferTransaction(ctx, env.company.ID, env.userID, TransferRequest{
		ComponentID:    uuid.NewString(),
		FromLocationID: locationID,
		ToLocationID:   locationID,
		Quantity:       dec("5"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.stock.CreateTransferTransaction(ctx, env.company.ID, env.userID, TransferRequest{
		ComponentID:    uuid.NewString(),
		FromLocationID: uuid.NewString(),
		ToLocationID:   uuid.NewString(),
		Quantity:       dec("0"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateTransferInsufficientSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))
	env.seedStock(t, env.company.ID, component.ID, dec("10"))

	from, err := env.locationRepo.GetOrCreateDefault(ctx, env.company.ID, model.LocationTypeWarehouse)
	require.NoError(t, err)
	to := &model.Location{CompanyID: env.company.ID, Name: "Overflow", Type: model.LocationTypeWarehouse, IsActive: true}
	require.NoError(t, env.locationRepo.Create(ctx, to))

	_, err = env.stock.CreateTransferTransaction(ctx, env.company.ID, env.userID, TransferRequest{
		ComponentID:    component.ID.String(),
		FromLocationID: from.ID.String(),
		ToLocationID:   to.ID.String(),
		Quantity:       dec("25"),
	})
	require.Error(t, err)

	var insufficient *apperror.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 1)
	assert.True(t, insufficient.Items[0].Available.Equal(dec("10")))
	assert.True(t, insufficient.Items[0].Required.Equal(dec("25")))

	// Failed transfer moves nothing.
	fromBalance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, &from.ID)
	require.NoError(t, err)
	assert.True(t, fromBalance.Equal(dec("10")))
}

func TestCreateOutboundTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("100"))
	sku, _ := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("1"),
	})

	_, err := env.stock.CreateBuildTransaction(ctx, env.company.ID, env.userID, BuildRequest{
		SKUID:        sku.ID.String(),
		UnitsToBuild: 10,
	})
	require.NoError(t, err)

	tx, err := env.stock.CreateOutboundTransaction(ctx, env.company.ID, env.userID, OutboundRequest{
		SKUID:        sku.ID.String(),
		Quantity:     dec("4"),
		SalesChannel: "shopify",
	})
	require.NoError(t, err)
	assert.Equal(t, "shopify", tx.SalesChannel)

	fg, err := env.stock.GetFinishedGoodsQuantity(ctx, env.company.ID, sku.ID, nil)
	require.NoError(t, err)
	assert.True(t, fg.Equal(dec("6")))
}

func TestCreateOutboundBlockedWithoutStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	_, err = env.stock.CreateOutboundTransaction(ctx, env.company.ID, env.userID, OutboundRequest{
		SKUID:    sku.ID.String(),
		Quantity: dec("1"),
	})
	assert.ErrorIs(t, err, apperror.ErrInsufficientInventory)
}

func TestCreateOutboundNegativeInventoryAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.company.AllowNegativeInventory = true
	require.NoError(t, env.companyRepo.Update(ctx, env.company))

	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	_, err = env.stock.CreateOutboundTransaction(ctx, env.company.ID, env.userID, OutboundRequest{
		SKUID:    sku.ID.String(),
		Quantity: dec("3"),
	})
	require.NoError(t, err)

	fg, err := env.stock.GetFinishedGoodsQuantity(ctx, env.company.ID, sku.ID, nil)
	require.NoError(t, err)
	assert.True(t, fg.Equal(dec("-3")), "finished goods = %s", fg)
}
