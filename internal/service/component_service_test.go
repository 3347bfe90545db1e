package service

import (
	"context"
	"testing"

	"skustack/internal/apperror"
	"skustack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComponentRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.component.CreateComponent(ctx, env.company.ID, env.userID, CreateComponentRequest{
		SKUCode: "CMP-001",
		Name:    "Bolt",
	})
	require.NoError(t, err)

	_, err = env.component.CreateComponent(ctx, env.company.ID, env.userID, CreateComponentRequest{
		SKUCode: "CMP-001",
		Name:    "Different Name",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = env.component.CreateComponent(ctx, env.company.ID, env.userID, CreateComponentRequest{
		SKUCode: "CMP-002",
		Name:    "Bolt",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Another company may reuse both.
	other := env.createCompany(t, "Beta Goods")
	_, err = env.component.CreateComponent(ctx, other.ID, env.userID, CreateComponentRequest{
		SKUCode: "CMP-001",
		Name:    "Bolt",
	})
	assert.NoError(t, err)
}

func TestCreateComponentRejectsNegativeFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.component.CreateComponent(ctx, env.company.ID, env.userID, CreateComponentRequest{
		SKUCode:     "CMP-001",
		Name:        "Bolt",
		CostPerUnit: dec("-1"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.component.CreateComponent(ctx, env.company.ID, env.userID, CreateComponentRequest{
		SKUCode:      "CMP-001",
		Name:         "Bolt",
		ReorderPoint: dec("-5"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDeactivateComponentIsSoft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	component := env.createComponent(t, env.company.ID, "CMP-001", "Bolt", dec("0.25"), dec("0"))
	env.seedStock(t, env.company.ID, component.ID, dec("40"))

	require.NoError(t, env.component.DeactivateComponent(ctx, env.company.ID, env.userID, component.ID.String()))

	// The row and its ledger history survive deactivation.
	got, err := env.component.GetComponent(ctx, env.company.ID, component.ID.String())
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.QuantityOnHand.Equal(dec("40")))
}

func TestGetComponentReorderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	component := env.createComponent(t, env.company.ID, "CMP-001", "Bolt", dec("0.25"), dec("10"))
	env.seedStock(t, env.company.ID, component.ID, dec("12"))

	got, err := env.component.GetComponent(ctx, env.company.ID, component.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ReorderStatusWarning, got.ReorderStatus)
	assert.True(t, got.QuantityOnHand.Equal(dec("12")))
}

func TestListComponentsSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createComponent(t, env.company.ID, "CMP-001", "Steel Bolt", dec("0.25"), dec("0"))
	env.createComponent(t, env.company.ID, "CMP-002", "Steel Panel", dec("12.00"), dec("0"))
	env.createComponent(t, env.company.ID, "CMP-003", "Rubber Seal", dec("0.80"), dec("0"))

	items, total, err := env.component.ListComponents(ctx, env.company.ID, 1, 20, "steel")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}
