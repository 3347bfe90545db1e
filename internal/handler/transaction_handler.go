package handler

import (
	"net/http"
	"strconv"

	"skustack/internal/middleware"
	"skustack/internal/model"
	"skustack/internal/service"
	"skustack/pkg/pagination"
	"skustack/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	ledgerService service.LedgerService
	stockService  service.StockService
}

func NewTransactionHandler(ledgerService service.LedgerService, stockService service.StockService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService, stockService: stockService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	transactions := router.Group("/api/transactions")
	{
		transactions.GET("", anyRole, h.ListTransactions)
		transactions.GET("/:id", anyRole, h.GetTransaction)
		transactions.POST("/receipt", anyRole, h.CreateReceipt)
		transactions.POST("/adjustment", anyRole, h.CreateAdjustment)
		transactions.POST("/initial", writeRole, h.CreateInitial)
		transactions.POST("/build", anyRole, h.CreateBuild)
		transactions.POST("/build/check", anyRole, h.CheckBuild)
		transactions.POST("/transfer", anyRole, h.CreateTransfer)
		transactions.POST("/outbound", anyRole, h.CreateOutbound)
		transactions.PUT("/:id", writeRole, h.UpdateTransaction)
		transactions.DELETE("/:id", writeRole, h.DeleteTransaction)
	}

	router.GET("/api/components/:id/quantity", anyRole, h.GetComponentQuantity)
	router.GET("/api/components/:id/lots", anyRole, h.ListLots)
}

// ListTransactions returns the transaction history
// @Summary      List transactions
// @Description  Retrieves a paginated transaction history, optionally filtered by type
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Param        type   query     string  false  "Transaction type filter"
// @Success      200    {object}  response.Response{data=pagination.Paged}
// @Failure      500    {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	p := pagination.Parse(c)
	txType := c.Query("type")

	transactions, total, err := h.ledgerService.ListTransactions(c.Request.Context(), middleware.CompanyID(c), p.Page, p.Limit, txType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(transactions, total, p)))
}

// GetTransaction returns one transaction with its lines
// @Summary      Get transaction
// @Description  Retrieves a transaction with component and finished-goods lines
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=model.Transaction}
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	tx, err := h.ledgerService.GetTransaction(c.Request.Context(), middleware.CompanyID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tx))
}

// CreateReceipt records incoming component stock
// @Summary      Create receipt
// @Description  Records a positive stock receipt, optionally against a lot, and can update the component's cost
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReceiptRequest  true  "Receipt Payload"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/transactions/receipt [post]
func (h *TransactionHandler) CreateReceipt(c *gin.Context) {
	var req service.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.ledgerService.CreateReceiptTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// CreateAdjustment records a manual stock correction
// @Summary      Create adjustment
// @Description  Records a signed stock adjustment with a reason
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AdjustmentRequest  true  "Adjustment Payload"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Router       /api/transactions/adjustment [post]
func (h *TransactionHandler) CreateAdjustment(c *gin.Context) {
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.ledgerService.CreateAdjustmentTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// CreateInitial records a component's opening balance
// @Summary      Create initial balance
// @Description  Posts a component's opening balance; rejected if one exists unless allow_overwrite is set
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InitialRequest  true  "Initial Balance Payload"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/transactions/initial [post]
func (h *TransactionHandler) CreateInitial(c *gin.Context) {
	var req service.InitialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.ledgerService.CreateInitialTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// CreateBuild converts components into finished goods per the BOM
// @Summary      Create build
// @Description  Consumes BOM components and produces finished goods; fails with per-component shortfalls unless allow_insufficient_inventory is set
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BuildRequest  true  "Build Payload"
// @Success      201      {object}  response.Response{data=service.BuildResult}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/transactions/build [post]
func (h *TransactionHandler) CreateBuild(c *gin.Context) {
	var req service.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.stockService.CreateBuildTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// CheckBuild is the read-only sufficiency pre-flight for a build
// @Summary      Check build sufficiency
// @Description  Returns per-component shortfalls for a prospective build without writing anything
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        bom_version_id  query     string  true  "BOM Version ID"
// @Param        units           query     int     true  "Units to build"
// @Success      200             {object}  response.Response{data=[]apperror.ShortfallItem}
// @Failure      400             {object}  response.Response
// @Router       /api/transactions/build/check [post]
func (h *TransactionHandler) CheckBuild(c *gin.Context) {
	bomVersionID := c.Query("bom_version_id")
	units, err := strconv.ParseInt(c.Query("units"), 10, 64)
	if err != nil || units <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "units must be a positive integer"))
		return
	}

	locationID, ok := optionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	shortfalls, err := h.stockService.CheckInsufficientInventory(c.Request.Context(), middleware.CompanyID(c), bomVersionID, units, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shortfalls))
}

// CreateTransfer moves component stock between locations
// @Summary      Create transfer
// @Description  Atomically moves a quantity of one component from a source location to a destination location
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TransferRequest  true  "Transfer Payload"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/transactions/transfer [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.stockService.CreateTransferTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// CreateOutbound ships finished goods out through a sales channel
// @Summary      Create outbound
// @Description  Deducts finished goods for a sale; blocked by insufficient stock unless the company allows negative inventory
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.OutboundRequest  true  "Outbound Payload"
// @Success      201      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/transactions/outbound [post]
func (h *TransactionHandler) CreateOutbound(c *gin.Context) {
	var req service.OutboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.stockService.CreateOutboundTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// UpdateTransaction replaces an approved transaction's lines wholesale
// @Summary      Update transaction
// @Description  Updates an approved transaction's metadata and replaces its lines wholesale
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Transaction ID"
// @Param        payload  body      service.UpdateTransactionRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.Transaction}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req service.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.ledgerService.UpdateTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tx))
}

// DeleteTransaction removes a transaction and its lines
// @Summary      Delete transaction
// @Description  Deletes a transaction with its lines; balances recompute from the remaining ledger
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	if err := h.ledgerService.DeleteTransaction(c.Request.Context(), middleware.CompanyID(c), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Transaction deleted successfully"))
}

// GetComponentQuantity returns a component's live on-hand balance
// @Summary      Get component quantity
// @Description  Returns the component's on-hand quantity aggregated from the ledger, optionally scoped to one location
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id           path      string  true   "Component ID"
// @Param        location_id  query     string  false  "Location ID"
// @Success      200          {object}  response.Response
// @Failure      400          {object}  response.Response
// @Router       /api/components/{id}/quantity [get]
func (h *TransactionHandler) GetComponentQuantity(c *gin.Context) {
	componentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid component ID"))
		return
	}

	locationID, ok := optionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}

	quantity, err := h.ledgerService.GetComponentQuantity(c.Request.Context(), middleware.CompanyID(c), componentID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"component_id": componentID,
		"quantity":     quantity,
	}))
}

// ListLots returns a component's lots with balances and expiry status
// @Summary      List component lots
// @Description  Retrieves a component's lots with remaining quantity and expiry classification
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Component ID"
// @Success      200  {object}  response.Response{data=[]service.LotResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/components/{id}/lots [get]
func (h *TransactionHandler) ListLots(c *gin.Context) {
	lots, err := h.ledgerService.ListLots(c.Request.Context(), middleware.CompanyID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lots))
}

// optionalUUIDQuery parses an optional uuid query param; on a malformed
// value it writes a 400 and reports false.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return nil, false
	}
	return &parsed, true
}
