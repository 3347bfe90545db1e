package service

import (
	"context"
	"testing"

	"skustack/internal/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSKURejectsDuplicateInternalCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	_, err = env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Other Gadget",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// A different company may reuse the code.
	other := env.createCompany(t, "Beta Goods")
	_, err = env.sku.CreateSKU(ctx, other.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	assert.NoError(t, err)
}

func TestUpdateSKUOptimisticLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)
	require.Equal(t, 1, sku.Version)

	name := "Gadget Mk2"
	expected := 1
	updated, err := env.sku.UpdateSKU(ctx, env.company.ID, env.userID, sku.ID.String(), UpdateSKURequest{
		ExpectedVersion: &expected,
		Name:            &name,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Gadget Mk2", updated.Name)

	// A writer still holding version 1 is rejected without a write.
	stale := "Gadget Mk3"
	_, err = env.sku.UpdateSKU(ctx, env.company.ID, env.userID, sku.ID.String(), UpdateSKURequest{
		ExpectedVersion: &expected,
		Name:            &stale,
	})
	require.Error(t, err)

	var conflict *apperror.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Expected)
	assert.Equal(t, 2, conflict.Actual)
	assert.ErrorIs(t, err, apperror.ErrVersionConflict)

	current, err := env.sku.GetSKU(ctx, env.company.ID, sku.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Gadget Mk2", current.Name)
	assert.Equal(t, 2, current.Version)
}

func TestUpdateSKUWithoutExpectedVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	// No expected version: the update applies unconditionally but the
	// stored counter still advances.
	name := "Gadget Mk2"
	updated, err := env.sku.UpdateSKU(ctx, env.company.ID, env.userID, sku.ID.String(), UpdateSKURequest{
		Name: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
}

func TestCreateBOMVersionActivateDeactivatesSiblings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	sku, first := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})
	require.True(t, first.IsActive)

	second, err := env.sku.CreateBOMVersion(ctx, env.company.ID, env.userID, CreateBOMVersionRequest{
		SKUID:       sku.ID.String(),
		VersionName: "v2",
		Lines: []BOMLineInput{
			{ComponentID: bolt.ID.String(), QuantityPerUnit: dec("3")},
		},
		Activate: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsActive)

	versions, err := env.sku.ListBOMVersions(ctx, env.company.ID, sku.ID.String())
	require.NoError(t, err)
	require.Len(t, versions, 2)

	active := 0
	for _, v := range versions {
		if v.IsActive {
			active++
			assert.Equal(t, second.ID, v.ID)
		}
	}
	assert.Equal(t, 1, active, "exactly one version may be active")
}

func TestActivateBOMVersionSwitchesActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	sku, first := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	second, err := env.sku.CreateBOMVersion(ctx, env.company.ID, env.userID, CreateBOMVersionRequest{
		SKUID:       sku.ID.String(),
		VersionName: "v2",
		Lines: []BOMLineInput{
			{ComponentID: bolt.ID.String(), QuantityPerUnit: dec("3")},
		},
	})
	require.NoError(t, err)
	assert.False(t, second.IsActive)

	activated, err := env.sku.ActivateBOMVersion(ctx, env.company.ID, env.userID, second.ID.String())
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	reloaded, err := env.bomRepo.FindByID(ctx, env.company.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestUpdateBOMVersionReplacesLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	panel := env.createComponent(t, env.company.ID, "CMP-PANEL", "Panel", dec("12.00"), dec("0"))
	_, version := env.createSKUWithBOM(t, env.company.ID, "SKU-1", map[uuid.UUID]decimal.Decimal{
		bolt.ID: dec("2"),
	})

	expected := version.Version
	updated, err := env.sku.UpdateBOMVersion(ctx, env.company.ID, env.userID, version.ID.String(), UpdateBOMVersionRequest{
		ExpectedVersion: &expected,
		Lines: []BOMLineInput{
			{ComponentID: panel.ID.String(), QuantityPerUnit: dec("4")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, expected+1, updated.Version)

	// The old line set is gone, not merged.
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, panel.ID, updated.Lines[0].ComponentID)
	assert.True(t, updated.Lines[0].QuantityPerUnit.Equal(dec("4")))
}

func TestBOMLineQuantityMustBePositive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bolt := env.createComponent(t, env.company.ID, "CMP-BOLT", "Bolt", dec("0.25"), dec("0"))
	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	_, err = env.sku.CreateBOMVersion(ctx, env.company.ID, env.userID, CreateBOMVersionRequest{
		SKUID:       sku.ID.String(),
		VersionName: "v1",
		Lines: []BOMLineInput{
			{ComponentID: bolt.ID.String(), QuantityPerUnit: dec("0")},
		},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSKUTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sku, err := env.sku.CreateSKU(ctx, env.company.ID, env.userID, CreateSKURequest{
		InternalCode: "SKU-1",
		Name:         "Gadget",
	})
	require.NoError(t, err)

	other := env.createCompany(t, "Beta Goods")
	_, err = env.sku.GetSKU(ctx, other.ID, sku.ID.String())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
