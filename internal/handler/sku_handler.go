package handler

import (
	"net/http"

	"skustack/internal/middleware"
	"skustack/internal/model"
	"skustack/internal/service"
	"skustack/pkg/pagination"
	"skustack/pkg/response"

	"github.com/gin-gonic/gin"
)

type SKUHandler struct {
	skuService service.SKUService
}

func NewSKUHandler(skuService service.SKUService) *SKUHandler {
	return &SKUHandler{skuService: skuService}
}

func (h *SKUHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	skus := router.Group("/api/skus")
	{
		skus.GET("", anyRole, h.ListSKUs)
		skus.GET("/:id", anyRole, h.GetSKU)
		skus.POST("", writeRole, h.CreateSKU)
		skus.PUT("/:id", writeRole, h.UpdateSKU)
		skus.GET("/:id/bom-versions", anyRole, h.ListBOMVersions)
	}

	boms := router.Group("/api/bom-versions")
	{
		boms.POST("", writeRole, h.CreateBOMVersion)
		boms.PUT("/:id", writeRole, h.UpdateBOMVersion)
		boms.POST("/:id/activate", writeRole, h.ActivateBOMVersion)
	}
}

// ListSKUs returns sellable SKUs
// @Summary      List SKUs
// @Description  Retrieves a paginated list of sellable SKUs
// @Tags         skus
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Paged}
// @Failure      500    {object}  response.Response
// @Router       /api/skus [get]
func (h *SKUHandler) ListSKUs(c *gin.Context) {
	p := pagination.Parse(c)

	skus, total, err := h.skuService.ListSKUs(c.Request.Context(), middleware.CompanyID(c), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(skus, total, p)))
}

// GetSKU returns one SKU
// @Summary      Get SKU
// @Description  Retrieves a SKU by ID
// @Tags         skus
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "SKU ID"
// @Success      200  {object}  response.Response{data=model.SKU}
// @Failure      404  {object}  response.Response
// @Router       /api/skus/{id} [get]
func (h *SKUHandler) GetSKU(c *gin.Context) {
	sku, err := h.skuService.GetSKU(c.Request.Context(), middleware.CompanyID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sku))
}

// CreateSKU creates a sellable SKU
// @Summary      Create SKU
// @Description  Creates a SKU; internal code must be unique within the company
// @Tags         skus
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSKURequest  true  "Create SKU Payload"
// @Success      201      {object}  response.Response{data=model.SKU}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/skus [post]
func (h *SKUHandler) CreateSKU(c *gin.Context) {
	var req service.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sku, err := h.skuService.CreateSKU(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sku))
}

// UpdateSKU updates a SKU under optimistic concurrency
// @Summary      Update SKU
// @Description  Updates a SKU; when expected_version is supplied a stale version is rejected with 409
// @Tags         skus
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "SKU ID"
// @Param        payload  body      service.UpdateSKURequest  true  "Update SKU Payload"
// @Success      200      {object}  response.Response{data=model.SKU}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/skus/{id} [put]
func (h *SKUHandler) UpdateSKU(c *gin.Context) {
	var req service.UpdateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sku, err := h.skuService.UpdateSKU(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sku))
}

// ListBOMVersions returns every BOM version of a SKU
// @Summary      List BOM versions
// @Description  Retrieves all BOM versions of a SKU with their lines
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "SKU ID"
// @Success      200  {object}  response.Response{data=[]model.BOMVersion}
// @Failure      404  {object}  response.Response
// @Router       /api/skus/{id}/bom-versions [get]
func (h *SKUHandler) ListBOMVersions(c *gin.Context) {
	versions, err := h.skuService.ListBOMVersions(c.Request.Context(), middleware.CompanyID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, versions))
}

// CreateBOMVersion creates a BOM version with its lines
// @Summary      Create BOM version
// @Description  Creates a BOM version; setting activate deactivates the SKU's other versions
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBOMVersionRequest  true  "Create BOM Version Payload"
// @Success      201      {object}  response.Response{data=model.BOMVersion}
// @Failure      400      {object}  response.Response
// @Router       /api/bom-versions [post]
func (h *SKUHandler) CreateBOMVersion(c *gin.Context) {
	var req service.CreateBOMVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	version, err := h.skuService.CreateBOMVersion(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, version))
}

// UpdateBOMVersion updates a BOM version under optimistic concurrency
// @Summary      Update BOM version
// @Description  Updates a BOM version's metadata and replaces its lines wholesale when lines are supplied
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "BOM Version ID"
// @Param        payload  body      service.UpdateBOMVersionRequest  true  "Update BOM Version Payload"
// @Success      200      {object}  response.Response{data=model.BOMVersion}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/bom-versions/{id} [put]
func (h *SKUHandler) UpdateBOMVersion(c *gin.Context) {
	var req service.UpdateBOMVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	version, err := h.skuService.UpdateBOMVersion(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}

// ActivateBOMVersion makes a version the SKU's single active BOM
// @Summary      Activate BOM version
// @Description  Activates a BOM version and deactivates the SKU's other versions
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "BOM Version ID"
// @Success      200  {object}  response.Response{data=model.BOMVersion}
// @Failure      404  {object}  response.Response
// @Router       /api/bom-versions/{id}/activate [post]
func (h *SKUHandler) ActivateBOMVersion(c *gin.Context) {
	version, err := h.skuService.ActivateBOMVersion(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, version))
}
