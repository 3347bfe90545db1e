package handler

import (
	"net/http"
	"time"

	"skustack/internal/middleware"
	"skustack/internal/model"
	"skustack/internal/service"
	"skustack/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AnalyticsHandler struct {
	bomService         service.BOMService
	stockService       service.StockService
	attributionService service.AttributionService
}

func NewAnalyticsHandler(bomService service.BOMService, stockService service.StockService, attributionService service.AttributionService) *AnalyticsHandler {
	return &AnalyticsHandler{bomService: bomService, stockService: stockService, attributionService: attributionService}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	router.GET("/api/skus/:id/buildable", anyRole, h.GetBuildableUnits)
	router.GET("/api/skus/:id/limiting-factors", anyRole, h.GetLimitingFactors)
	router.GET("/api/skus/:id/finished-goods", anyRole, h.GetFinishedGoodsQuantity)
	router.GET("/api/bom-versions/:id/unit-cost", anyRole, h.GetBOMUnitCost)

	sales := router.Group("/api/sales")
	{
		sales.GET("", anyRole, h.ListSales)
		sales.POST("/daily", writeRole, h.UpsertDailySales)
		sales.POST("/recalculate", writeRole, h.RecalculateOrganic)
	}
}

// GetBuildableUnits returns how many units the active BOM allows
// @Summary      Get buildable units
// @Description  Returns the max units buildable from current stock; buildable_units is null when the SKU has no active BOM
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id           path      string  true   "SKU ID"
// @Param        location_id  query     string  false  "Location ID"
// @Success      200          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/skus/{id}/buildable [get]
func (h *AnalyticsHandler) GetBuildableUnits(c *gin.Context) {
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid SKU ID"))
		return
	}
	locationID, ok := optionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	units, err := h.bomService.CalculateMaxBuildableUnits(c.Request.Context(), middleware.CompanyID(c), skuID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"sku_id":          skuID,
		"buildable_units": units,
	}))
}

// GetLimitingFactors ranks BOM components by how few units they allow
// @Summary      Get limiting factors
// @Description  Returns BOM components ordered by buildable units ascending, so the bottleneck comes first
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id           path      string  true   "SKU ID"
// @Param        location_id  query     string  false  "Location ID"
// @Success      200          {object}  response.Response{data=[]service.LimitingFactor}
// @Failure      404          {object}  response.Response
// @Router       /api/skus/{id}/limiting-factors [get]
func (h *AnalyticsHandler) GetLimitingFactors(c *gin.Context) {
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid SKU ID"))
		return
	}
	locationID, ok := optionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	factors, err := h.bomService.CalculateLimitingFactors(c.Request.Context(), middleware.CompanyID(c), skuID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, factors))
}

// GetFinishedGoodsQuantity returns a SKU's finished goods balance
// @Summary      Get finished goods quantity
// @Description  Returns the SKU's finished goods on-hand quantity aggregated from the ledger
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id           path      string  true   "SKU ID"
// @Param        location_id  query     string  false  "Location ID"
// @Success      200          {object}  response.Response
// @Failure      400          {object}  response.Response
// @Router       /api/skus/{id}/finished-goods [get]
func (h *AnalyticsHandler) GetFinishedGoodsQuantity(c *gin.Context) {
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid SKU ID"))
		return
	}
	locationID, ok := optionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	quantity, err := h.stockService.GetFinishedGoodsQuantity(c.Request.Context(), middleware.CompanyID(c), skuID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"sku_id":   skuID,
		"quantity": quantity,
	}))
}

// GetBOMUnitCost returns the per-unit component cost of a BOM version
// @Summary      Get BOM unit cost
// @Description  Returns the sum over BOM lines of quantity per unit times current component cost
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "BOM Version ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/bom-versions/{id}/unit-cost [get]
func (h *AnalyticsHandler) GetBOMUnitCost(c *gin.Context) {
	bomVersionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid BOM version ID"))
		return
	}

	unitCost, err := h.bomService.CalculateBOMUnitCost(c.Request.Context(), middleware.CompanyID(c), bomVersionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"bom_version_id": bomVersionID,
		"unit_cost":      unitCost,
	}))
}

// ListSales returns per-channel attribution for a date range
// @Summary      List sales attribution
// @Description  Returns daily per-channel sales with organic and ad-attributed splits, percentages, and anomaly flags
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        start  query     string  true  "Start date (YYYY-MM-DD)"
// @Param        end    query     string  true  "End date (YYYY-MM-DD)"
// @Success      200    {object}  response.Response{data=[]service.ChannelAttribution}
// @Failure      400    {object}  response.Response
// @Router       /api/sales [get]
func (h *AnalyticsHandler) ListSales(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD"))
		return
	}

	sales, err := h.attributionService.ListSales(c.Request.Context(), middleware.CompanyID(c), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

// UpsertDailySales records or overwrites one channel-day sales row
// @Summary      Upsert daily sales
// @Description  Creates or updates a day's sales for one channel; organic sales are derived as total minus ad-attributed, clamped at zero
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpsertSalesRequest  true  "Daily Sales Payload"
// @Success      200      {object}  response.Response{data=model.SalesDaily}
// @Failure      400      {object}  response.Response
// @Router       /api/sales/daily [post]
func (h *AnalyticsHandler) UpsertDailySales(c *gin.Context) {
	var req service.UpsertSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	row, err := h.attributionService.UpsertDailySales(c.Request.Context(), middleware.CompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, row))
}

// RecalculateOrganic redistributes a day's organic sales across channels
// @Summary      Recalculate organic sales
// @Description  Re-derives each channel's organic share for a date proportionally to its share of the day's total sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        date  query     string  true  "Date (YYYY-MM-DD)"
// @Success      200   {object}  response.Response{data=[]model.SalesDaily}
// @Failure      400   {object}  response.Response
// @Router       /api/sales/recalculate [post]
func (h *AnalyticsHandler) RecalculateOrganic(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD"))
		return
	}

	rows, err := h.attributionService.RecalculateOrganicSales(c.Request.Context(), middleware.CompanyID(c), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
