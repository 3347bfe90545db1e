package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportComponentsCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A name with a comma, a quote and a newline must survive quoting.
	awkward := env.createComponent(t, env.company.ID, "CMP-001", "Bolt, \"zinc\"\n3mm", dec("0.25"), dec("10"))
	env.createComponent(t, env.company.ID, "CMP-002", "Panel", dec("12.00"), dec("0"))
	env.seedStock(t, env.company.ID, awkward.ID, dec("150"))

	var buf bytes.Buffer
	require.NoError(t, env.export.ExportComponentsCSV(ctx, env.company.ID, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, componentCSVHeader, records[0])

	byCode := map[string][]string{}
	for _, record := range records[1:] {
		byCode[record[0]] = record
	}
	require.Contains(t, byCode, "CMP-001")
	require.Contains(t, byCode, "CMP-002")
	assert.Equal(t, "Bolt, \"zinc\"\n3mm", byCode["CMP-001"][1])
	assert.True(t, dec(byCode["CMP-001"][7]).Equal(dec("150")))
	assert.True(t, dec(byCode["CMP-002"][7]).IsZero())
	assert.True(t, dec(byCode["CMP-002"][4]).Equal(dec("12")))
}

func TestImportComponentsCSVCreatesAndSeeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"sku_code,name,category,unit_of_measure,cost_per_unit,reorder_point,lead_time_days,quantity_on_hand",
		"CMP-001,Bolt,hardware,each,0.25,100,14,500",
		"CMP-002,Panel,,sheet,12.00,5,,0",
	}, "\n")

	results, err := env.export.ImportComponentsCSV(ctx, env.company.ID, env.userID, strings.NewReader(input), false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ImportStatusCreated, results[0].Status)
	assert.Equal(t, ImportStatusCreated, results[1].Status)
	assert.Equal(t, 2, results[0].Row)

	bolt, err := env.componentRepo.FindBySKUCode(ctx, env.company.ID, "CMP-001")
	require.NoError(t, err)
	assert.Equal(t, "hardware", bolt.Category)
	assert.Equal(t, 14, bolt.LeadTimeDays)
	assert.True(t, bolt.CostPerUnit.Equal(dec("0.25")))

	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("500")))

	panel, err := env.componentRepo.FindBySKUCode(ctx, env.company.ID, "CMP-002")
	require.NoError(t, err)
	balance, err = env.ledger.GetComponentQuantity(ctx, env.company.ID, panel.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "zero quantity rows post no initial balance")
}

func TestImportComponentsCSVReimport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := "sku_code,name,cost_per_unit,quantity_on_hand\nCMP-001,Bolt,0.25,500\n"
	results, err := env.export.ImportComponentsCSV(ctx, env.company.ID, env.userID, strings.NewReader(input), false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, ImportStatusCreated, results[0].Status)

	// Without overwrite the existing initial balance wins and the row
	// is reported skipped.
	reimport := "sku_code,name,cost_per_unit,quantity_on_hand\nCMP-001,Bolt Renamed,0.30,999\n"
	results, err = env.export.ImportComponentsCSV(ctx, env.company.ID, env.userID, strings.NewReader(reimport), false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ImportStatusSkipped, results[0].Status)

	bolt, err := env.componentRepo.FindBySKUCode(ctx, env.company.ID, "CMP-001")
	require.NoError(t, err)
	balance, err := env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("500")))

	// With overwrite the initial balance is replaced.
	results, err = env.export.ImportComponentsCSV(ctx, env.company.ID, env.userID, strings.NewReader(reimport), true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ImportStatusUpdated, results[0].Status)

	balance, err = env.ledger.GetComponentQuantity(ctx, env.company.ID, bolt.ID, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("999")))
}

func TestImportComponentsCSVRowFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := strings.Join([]string{
		"sku_code,name,cost_per_unit",
		"CMP-001,Bolt,0.25",
		"CMP-002,,1.00",
		"CMP-003,Panel,not-a-number",
		"CMP-004,Washer,0.05",
	}, "\n")

	results, err := env.export.ImportComponentsCSV(ctx, env.company.ID, env.userID, strings.NewReader(input), false)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, ImportStatusCreated, results[0].Status)
	assert.Equal(t, ImportStatusFailed, results[1].Status)
	assert.Equal(t, ImportStatusFailed, results[2].Status)
	assert.Equal(t, ImportStatusCreated, results[3].Status, "rows after a failure still import")

	_, err = env.componentRepo.FindBySKUCode(ctx, env.company.ID, "CMP-004")
	assert.NoError(t, err)
}

func TestImportComponentsCSVMissingRequiredColumn(t *testing.T) {
	env := newTestEnv(t)

	input := "name,cost_per_unit\nBolt,0.25\n"
	_, err := env.export.ImportComponentsCSV(context.Background(), env.company.ID, env.userID, strings.NewReader(input), false)
	assert.Error(t, err)
}
