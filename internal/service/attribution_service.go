package service

import (
	"context"
	"time"

	"skustack/internal/apperror"
	"skustack/internal/model"
	"skustack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CalculateOrganic is total minus ad-attributed sales, clamped at zero.
// The clamp guards against bad upstream ad-attribution data.
func CalculateOrganic(totalSales, adAttributedSales decimal.Decimal) decimal.Decimal {
	organic := totalSales.Sub(adAttributedSales)
	if organic.IsNegative() {
		return decimal.Zero
	}
	return organic
}

// CalculateAdPercentage is the ad-attributed share of total sales,
// rounded to 2 decimals. Zero total yields zero.
func CalculateAdPercentage(totalSales, adAttributedSales decimal.Decimal) decimal.Decimal {
	if !totalSales.IsPositive() {
		return decimal.Zero
	}
	return adAttributedSales.Div(totalSales).Mul(oneHundred).Round(2)
}

// CalculateOrganicPercentage is the organic share of total sales, rounded
// to 2 decimals. When ad-attributed does not exceed total it is the exact
// complement of the ad percentage, so the two always sum to 100.
func CalculateOrganicPercentage(totalSales, adAttributedSales decimal.Decimal) decimal.Decimal {
	if !totalSales.IsPositive() {
		return decimal.Zero
	}
	if adAttributedSales.GreaterThan(totalSales) {
		return decimal.Zero
	}
	return oneHundred.Sub(CalculateAdPercentage(totalSales, adAttributedSales))
}

// HasAttributionAnomaly flags records where ad-attributed sales exceed
// total sales, a data-quality issue to surface rather than silently fix.
func HasAttributionAnomaly(totalSales, adAttributedSales decimal.Decimal) bool {
	return adAttributedSales.GreaterThan(totalSales)
}

// DTOs

type UpsertSalesRequest struct {
	Date              time.Time       `json:"date" binding:"required"`
	SalesChannel      string          `json:"sales_channel" binding:"required"`
	SKUID             string          `json:"sku_id"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	AdAttributedSales decimal.Decimal `json:"ad_attributed_sales"`
}

type ChannelAttribution struct {
	SalesChannel      string          `json:"sales_channel"`
	Date              time.Time       `json:"date"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	AdAttributedSales decimal.Decimal `json:"ad_attributed_sales"`
	OrganicSales      decimal.Decimal `json:"organic_sales"`
	OrganicPercentage decimal.Decimal `json:"organic_percentage"`
	AdPercentage      decimal.Decimal `json:"ad_percentage"`
	Anomaly           bool            `json:"anomaly"`
}

// AttributionService splits sales into organic and ad-attributed portions.
// The sync collaborators (Shopify/Amazon) feed it through the same upsert
// path as manual entry.
type AttributionService interface {
	UpsertDailySales(ctx context.Context, companyID uuid.UUID, req UpsertSalesRequest) (*model.SalesDaily, error)
	// RecalculateOrganicSales re-derives each channel's organic share for
	// a date proportionally to its share of the day's total sales.
	RecalculateOrganicSales(ctx context.Context, companyID uuid.UUID, date time.Time) ([]model.SalesDaily, error)
	ListSales(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]ChannelAttribution, error)
}

type attributionService struct {
	salesRepo repository.SalesRepository
	txManager repository.TransactionManager
}

func NewAttributionService(salesRepo repository.SalesRepository, txManager repository.TransactionManager) AttributionService {
	return &attributionService{salesRepo: salesRepo, txManager: txManager}
}

func (s *attributionService) UpsertDailySales(ctx context.Context, companyID uuid.UUID, req UpsertSalesRequest) (*model.SalesDaily, error) {
	if req.TotalSales.IsNegative() || req.AdAttributedSales.IsNegative() {
		return nil, apperror.Validation("total_sales", "sales amounts cannot be negative")
	}

	var skuID *uuid.UUID
	if req.SKUID != "" {
		parsed, err := uuid.Parse(req.SKUID)
		if err != nil {
			return nil, apperror.Validation("sku_id", "invalid sku id")
		}
		skuID = &parsed
	}

	date := req.Date.Truncate(24 * time.Hour)

	var record *model.SalesDaily
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.salesRepo.FindByDateChannel(txCtx, companyID, date, req.SalesChannel)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			existing = &model.SalesDaily{
				CompanyID:    companyID,
				Date:         date,
				SalesChannel: req.SalesChannel,
			}
		}
		existing.SKUID = skuID
		existing.TotalSales = req.TotalSales
		existing.AdAttributedSales = req.AdAttributedSales
		existing.OrganicSales = CalculateOrganic(req.TotalSales, req.AdAttributedSales)

		var saveErr error
		if existing.ID == uuid.Nil {
			saveErr = s.salesRepo.Create(txCtx, existing)
		} else {
			saveErr = s.salesRepo.Update(txCtx, existing)
		}
		if saveErr != nil {
			return saveErr
		}
		record = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *attributionService) RecalculateOrganicSales(ctx context.Context, companyID uuid.UUID, date time.Time) ([]model.SalesDaily, error) {
	day := date.Truncate(24 * time.Hour)

	var updated []model.SalesDaily
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		records, listErr := s.salesRepo.ListByDate(txCtx, companyID, day)
		if listErr != nil {
			return listErr
		}
		if len(records) == 0 {
			updated = []model.SalesDaily{}
			return nil
		}

		sumTotals := decimal.Zero
		sumAd := decimal.Zero
		for _, record := range records {
			sumTotals = sumTotals.Add(record.TotalSales)
			sumAd = sumAd.Add(record.AdAttributedSales)
		}
		overallOrganic := CalculateOrganic(sumTotals, sumAd)

		for i := range records {
			if sumTotals.IsPositive() {
				records[i].OrganicSales = records[i].TotalSales.Div(sumTotals).Mul(overallOrganic).Round(4)
			} else {
				records[i].OrganicSales = decimal.Zero
			}
			if saveErr := s.salesRepo.Update(txCtx, &records[i]); saveErr != nil {
				return saveErr
			}
		}
		updated = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *attributionService) ListSales(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]ChannelAttribution, error) {
	records, err := s.salesRepo.ListRange(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	res := make([]ChannelAttribution, 0, len(records))
	for _, record := range records {
		res = append(res, ChannelAttribution{
			SalesChannel:      record.SalesChannel,
			Date:              record.Date,
			TotalSales:        record.TotalSales,
			AdAttributedSales: record.AdAttributedSales,
			OrganicSales:      record.OrganicSales,
			OrganicPercentage: CalculateOrganicPercentage(record.TotalSales, record.AdAttributedSales),
			AdPercentage:      CalculateAdPercentage(record.TotalSales, record.AdAttributedSales),
			Anomaly:           HasAttributionAnomaly(record.TotalSales, record.AdAttributedSales),
		})
	}
	return res, nil
}
