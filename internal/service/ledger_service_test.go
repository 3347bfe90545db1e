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

func TestCalculateReorderStatus(t *testing.T) {
	cases := []struct {
		name         string
		quantity     string
		reorderPoint string
		want         string
	}{
		{"zero reorder point disables tracking", "0", "0", model.ReorderStatusOK},
		{"negative quantity with tracking disabled", "-5", "0", model.ReorderStatusOK},
		{"below reorder point", "3", "10", model.ReorderStatusCritical},
		{"exactly at reorder point", "10", "10", model.ReorderStatusCritical},
		{"inside warning band", "12", "10", model.ReorderStatusWarning},
		{"exactly at warning boundary", "15", "10", model.ReorderStatusWarning},
		{"above warning boundary", "15.0001", "10", model.ReorderStatusOK},
		{"well stocked", "100", "10", model.ReorderStatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateReorderStatus(dec(tc.quantity), dec(tc.reorderPoint), ReorderWarningMultiplier)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateReceiptIncreasesBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("2.50"), dec("0"))

	tx, err := env.ledger.CreateReceiptTransaction(ctx, env.company.ID, env.userID, ReceiptRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("10"),
		Supplier:    "Acme Supply",
	})
	require.NoError(t, err)
	require.Len(t, tx.Lines, 1)
	assert.Equal(t, model.TxTypeReceipt, tx.Type)
	assert.True(t, tx.Lines[0].QuantityChange.Equal(dec("10")))

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")), "balance = %s", balance)
}

func TestCreateReceiptRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))

	for _, quantity := range []string{"0", "-4"} {
		_, err := env.ledger.CreateReceiptTransaction(ctx, env.company.ID, env.userID, ReceiptRequest{
			ComponentID: component.ID.String(),
			Quantity:    dec(quantity),
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}

	// Validation failures must leave no trace in the ledger.
	_, total, err := env.ledger.ListTransactions(ctx, env.company.ID, 1, 10, "")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReceiptCostPolicyReplacesComponentCost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("2.00"), dec("0"))

	newCost := dec("3.75")
	_, err := env.ledger.CreateReceiptTransaction(ctx, env.company.ID, env.userID, ReceiptRequest{
		ComponentID:         component.ID.String(),
		Quantity:            dec("5"),
		CostPerUnit:         &newCost,
		UpdateComponentCost: true,
	})
	require.NoError(t, err)

	updated, err := env.componentRepo.FindByID(ctx, env.company.ID, component.ID)
	require.NoError(t, err)
	assert.True(t, updated.CostPerUnit.Equal(newCost), "cost = %s", updated.CostPerUnit)
}

func TestReceiptWithLotTracksLotBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))

	_, err := env.ledger.CreateReceiptTransaction(ctx, env.company.ID, env.userID, ReceiptRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("8"),
		LotNumber:   "LOT-2026-01",
	})
	require.NoError(t, err)

	lots, err := env.ledger.ListLots(ctx, env.company.ID, component.ID.String())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "LOT-2026-01", lots[0].LotNumber)
	assert.True(t, lots[0].Balance.Equal(dec("8")))
	assert.Equal(t, model.LotStatusOK, lots[0].Status)
}

func TestAdjustmentIsSigned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))

	_, err := env.ledger.CreateAdjustmentTransaction(ctx, env.company.ID, env.userID, AdjustmentRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("5"),
		Reason:      "found stock",
	})
	require.NoError(t, err)

	_, err = env.ledger.CreateAdjustmentTransaction(ctx, env.company.ID, env.userID, AdjustmentRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("-3"),
		Reason:      "damage",
	})
	require.NoError(t, err)

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("2")), "balance = %s", balance)

	_, err = env.ledger.CreateAdjustmentTransaction(ctx, env.company.ID, env.userID, AdjustmentRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("0"),
		Reason:      "noop",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestInitialTransactionIdempotency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))

	_, err := env.ledger.CreateInitialTransaction(ctx, env.company.ID, env.userID, InitialRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("100"),
	})
	require.NoError(t, err)

	// A second initial for the same component is rejected.
	_, err = env.ledger.CreateInitialTransaction(ctx, env.company.ID, env.userID, InitialRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("50"),
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100")))
}

func TestInitialTransactionOverwriteReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))

	_, err := env.ledger.CreateInitialTransaction(ctx, env.company.ID, env.userID, InitialRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("100"),
	})
	require.NoError(t, err)

	_, err = env.ledger.CreateInitialTransaction(ctx, env.company.ID, env.userID, InitialRequest{
		ComponentID:    component.ID.String(),
		Quantity:       dec("40"),
		AllowOverwrite: true,
	})
	require.NoError(t, err)

	// The old opening balance is gone, not added to.
	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("40")), "balance = %s", balance)

	_, total, err := env.ledger.ListTransactions(ctx, env.company.ID, 1, 10, model.TxTypeInitial)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestDeleteTransactionRecomputesBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))
	env.seedStock(t, env.company.ID, component.ID, dec("10"))

	adj, err := env.ledger.CreateAdjustmentTransaction(ctx, env.company.ID, env.userID, AdjustmentRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("-2"),
		Reason:      "damage",
	})
	require.NoError(t, err)

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("8")))

	require.NoError(t, env.ledger.DeleteTransaction(ctx, env.company.ID, env.userID, adj.ID.String()))

	balance, err = env.ledger.GetComponentQuantity(ctx, env.company.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")), "balance = %s", balance)
}

func TestLedgerTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	otherCompany := env.createCompany(t, "Rival Goods")

	component := env.createComponent(t, env.company.ID, "CMP-001", "Widget", dec("1"), dec("0"))
	env.seedStock(t, env.company.ID, component.ID, dec("50"))

	// The other tenant sees neither the balance nor the transactions.
	balance, err := env.ledger.GetComponentQuantity(ctx, otherCompany.ID, component.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, total, err := env.ledger.ListTransactions(ctx, otherCompany.ID, 1, 10, "")
	require.NoError(t, err)
	assert.Zero(t, total)

	// Nor can it post against the foreign component.
	_, err = env.ledger.CreateReceiptTransaction(ctx, otherCompany.ID, env.userID, ReceiptRequest{
		ComponentID: component.ID.String(),
		Quantity:    dec("5"),
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateBuildTransactionKeepsFinishedGoods(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, bolt.ID, dec("100"))
	sku, _ := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	result, err := env.stock.CreateBuildTransaction(ctx, env.company.ID, env.userID, BuildRequest{
		SKUID:        sku.ID.String(),
		UnitsToBuild: 10,
	})
	require.NoError(t, err)

	warehouse, err := env.locationRepo.GetOrCreateDefault(ctx, env.company.ID, model.LocationTypeWarehouse)
	require.NoError(t, err)

	// Correct the consumption from 20 to 18 bolts.
	updated, err := env.ledger.UpdateTransaction(ctx, env.company.ID, env.userID, result.Transaction.ID.String(), UpdateTransactionRequest{
		Lines: []TransactionLineInput{{
			ComponentID:    bolt.ID.String(),
			LocationID:     warehouse.ID.String(),
			QuantityChange: dec("-18"),
		}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.True(t, updated.Lines[0].QuantityChange.Equal(dec("-18")))

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("82")))

	// Editing component lines never touches the recorded production.
	require.Len(t, updated.FinishedGoodsLines, 1)
	fg, err := env.stock.GetFinishedGoodsQuantity(ctx, env.company.ID, sku.ID, nil)
	require.NoError(t, err)
	assert.True(t, fg.Equal(dec("10")), "finished goods = %s", fg)
}
