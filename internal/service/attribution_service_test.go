package service

import (
	"context"
	"testing"
	"time"

	"skustack/internal/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateOrganic(t *testing.T) {
	tests := []struct {
		name  string
		total string
		ad    string
		want  string
	}{
		{"typical split", "1000", "300", "700"},
		{"all organic", "500", "0", "500"},
		{"all ad", "500", "500", "0"},
		{"ad exceeds total clamps to zero", "100", "150", "0"},
		{"zero day", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateOrganic(dec(tt.total), dec(tt.ad))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestAttributionPercentagesSumToHundred(t *testing.T) {
	// 1/3 rounds to 33.33, so a naive independent rounding would give
	// 33.33 + 66.66 = 99.99. The organic side is the complement instead.
	total := dec("3")
	ad := dec("1")

	adPct := CalculateAdPercentage(total, ad)
	organicPct := CalculateOrganicPercentage(total, ad)

	assert.True(t, adPct.Equal(dec("33.33")), "ad pct = %s", adPct)
	assert.True(t, organicPct.Equal(dec("66.67")), "organic pct = %s", organicPct)
	assert.True(t, adPct.Add(organicPct).Equal(dec("100")))
}

func TestAttributionPercentagesZeroTotal(t *testing.T) {
	assert.True(t, CalculateAdPercentage(dec("0"), dec("0")).IsZero())
	assert.True(t, CalculateOrganicPercentage(dec("0"), dec("0")).IsZero())
}

func TestHasAttributionAnomaly(t *testing.T) {
	assert.False(t, HasAttributionAnomaly(dec("100"), dec("100")))
	assert.False(t, HasAttributionAnomaly(dec("100"), dec("99")))
	assert.True(t, HasAttributionAnomaly(dec("100"), dec("100.01")))
}

func TestUpsertDailySales(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	record, err := env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              day,
		SalesChannel:      "shopify",
		TotalSales:        dec("1000"),
		AdAttributedSales: dec("250"),
	})
	require.NoError(t, err)
	assert.True(t, record.OrganicSales.Equal(dec("750")))

	// Same date and channel overwrites, it does not duplicate.
	record, err = env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              day,
		SalesChannel:      "shopify",
		TotalSales:        dec("1200"),
		AdAttributedSales: dec("400"),
	})
	require.NoError(t, err)
	assert.True(t, record.OrganicSales.Equal(dec("800")))

	sales, err := env.attribution.ListSales(ctx, env.company.ID, day, day)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].TotalSales.Equal(dec("1200")))
}

func TestUpsertDailySalesRejectsNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:         time.Now(),
		SalesChannel: "shopify",
		TotalSales:   dec("-10"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              time.Now(),
		SalesChannel:      "shopify",
		TotalSales:        dec("10"),
		AdAttributedSales: dec("-1"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRecalculateOrganicSalesProportional(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	_, err := env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              day,
		SalesChannel:      "shopify",
		TotalSales:        dec("600"),
		AdAttributedSales: dec("100"),
	})
	require.NoError(t, err)
	_, err = env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              day,
		SalesChannel:      "amazon",
		TotalSales:        dec("400"),
		AdAttributedSales: dec("300"),
	})
	require.NoError(t, err)

	// Day total 1000 with 400 ad-attributed leaves 600 organic, split
	// by each channel's share of the total: 60% and 40%.
	records, err := env.attribution.RecalculateOrganicSales(ctx, env.company.ID, day)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byChannel := map[string]decimal.Decimal{}
	for _, r := range records {
		byChannel[r.SalesChannel] = r.OrganicSales
	}
	assert.True(t, byChannel["shopify"].Equal(dec("360")), "shopify organic = %s", byChannel["shopify"])
	assert.True(t, byChannel["amazon"].Equal(dec("240")), "amazon organic = %s", byChannel["amazon"])
}

func TestRecalculateOrganicSalesEmptyDay(t *testing.T) {
	env := newTestEnv(t)

	records, err := env.attribution.RecalculateOrganicSales(context.Background(), env.company.ID, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestListSalesRangeAndAnomalyFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	for _, day := range []time.Time{d1, d2, d3} {
		_, err := env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
			Date:              day,
			SalesChannel:      "shopify",
			TotalSales:        dec("100"),
			AdAttributedSales: dec("20"),
		})
		require.NoError(t, err)
	}
	// An anomalous row: ad-attributed above total.
	_, err := env.attribution.UpsertDailySales(ctx, env.company.ID, UpsertSalesRequest{
		Date:              d2,
		SalesChannel:      "amazon",
		TotalSales:        dec("50"),
		AdAttributedSales: dec("80"),
	})
	require.NoError(t, err)

	sales, err := env.attribution.ListSales(ctx, env.company.ID, d1, d2)
	require.NoError(t, err)
	require.Len(t, sales, 3, "range excludes the later date")

	anomalies := 0
	for _, s := range sales {
		if s.Anomaly {
			anomalies++
			assert.Equal(t, "amazon", s.SalesChannel)
			assert.True(t, s.OrganicSales.IsZero())
			assert.True(t, s.OrganicPercentage.IsZero())
		} else {
			assert.True(t, s.AdPercentage.Equal(dec("20")))
			assert.True(t, s.OrganicPercentage.Equal(dec("80")))
		}
	}
	assert.Equal(t, 1, anomalies)
}
