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

type ComponentHandler struct {
	componentService service.ComponentService
	exportService    service.ExportService
}

func NewComponentHandler(componentService service.ComponentService, exportService service.ExportService) *ComponentHandler {
	return &ComponentHandler{componentService: componentService, exportService: exportService}
}

func (h *ComponentHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	components := router.Group("/api/components")
	{
		components.GET("", anyRole, h.ListComponents)
		components.GET("/export", anyRole, h.ExportCSV)
		components.POST("/import", writeRole, h.ImportCSV)
		components.GET("/:id", anyRole, h.GetComponent)
		components.POST("", writeRole, h.CreateComponent)
		components.PUT("/:id", writeRole, h.UpdateComponent)
		components.DELETE("/:id", writeRole, h.DeactivateComponent)
	}
}

// ListComponents returns components with live balances and reorder status
// @Summary      List components
// @Description  Retrieves a paginated list of components with current on-hand quantity and reorder status
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by name or SKU code"
// @Success      200     {object}  response.Response{data=pagination.Paged}
// @Failure      500     {object}  response.Response
// @Router       /api/components [get]
func (h *ComponentHandler) ListComponents(c *gin.Context) {
	p := pagination.Parse(c)
	search := c.Query("search")

	components, total, err := h.componentService.ListComponents(c.Request.Context(), middleware.CompanyID(c), p.Page, p.Limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(components, total, p)))
}

// GetComponent returns one component with its balance
// @Summary      Get component
// @Description  Retrieves a single component with current on-hand quantity and reorder status
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Component ID"
// @Success      200  {object}  response.Response{data=service.ComponentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/components/{id} [get]
func (h *ComponentHandler) GetComponent(c *gin.Context) {
	component, err := h.componentService.GetComponent(c.Request.Context(), middleware.CompanyID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, component))
}

// CreateComponent creates a new component
// @Summary      Create component
// @Description  Creates a component; sku code and name must be unique within the company
// @Tags         components
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateComponentRequest  true  "Create Component Payload"
// @Success      201      {object}  response.Response{data=model.Component}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/components [post]
func (h *ComponentHandler) CreateComponent(c *gin.Context) {
	var req service.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	component, err := h.componentService.CreateComponent(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, component))
}

// UpdateComponent updates component metadata
// @Summary      Update component
// @Description  Updates a component's details by ID
// @Tags         components
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Component ID"
// @Param        payload  body      service.UpdateComponentRequest  true  "Update Component Payload"
// @Success      200      {object}  response.Response{data=model.Component}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/components/{id} [put]
func (h *ComponentHandler) UpdateComponent(c *gin.Context) {
	var req service.UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	component, err := h.componentService.UpdateComponent(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, component))
}

// DeactivateComponent retires a component without deleting its history
// @Summary      Deactivate component
// @Description  Marks a component inactive; its ledger history stays intact
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Component ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/components/{id} [delete]
func (h *ComponentHandler) DeactivateComponent(c *gin.Context) {
	if err := h.componentService.DeactivateComponent(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Component deactivated"))
}

// ExportCSV streams all components with balances as CSV
// @Summary      Export components CSV
// @Description  Downloads every component with its current on-hand quantity as a CSV file
// @Tags         components
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200  {string}  string  "CSV content"
// @Failure      500  {object}  response.Response
// @Router       /api/components/export [get]
func (h *ComponentHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="components.csv"`)

	if err := h.exportService.ExportComponentsCSV(c.Request.Context(), middleware.CompanyID(c), c.Writer); err != nil {
		respondError(c, err)
		return
	}
}

// ImportCSV loads components and opening balances from a CSV upload
// @Summary      Import components CSV
// @Description  Creates or updates components from a CSV file; positive quantity_on_hand values become initial balances
// @Tags         components
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file             formData  file    true   "CSV file"
// @Param        allow_overwrite  query     bool    false  "Replace existing initial balances"
// @Success      200              {object}  response.Response{data=[]service.ImportRowResult}
// @Failure      400              {object}  response.Response
// @Router       /api/components/import [post]
func (h *ComponentHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "CSV file is missing"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open uploaded file"))
		return
	}
	defer file.Close()

	allowOverwrite := c.Query("allow_overwrite") == "true"

	results, err := h.exportService.ImportComponentsCSV(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), file, allowOverwrite)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}
