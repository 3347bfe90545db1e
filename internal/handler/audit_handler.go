package handler

import (
	"net/http"

	"skustack/internal/middleware"
	"skustack/internal/model"
	"skustack/internal/repository"
	"skustack/pkg/pagination"
	"skustack/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepo repository.AuditRepository
}

func NewAuditHandler(auditRepo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.ListAuditLogs)
}

// ListAuditLogs returns the company's mutation trail
// @Summary      List audit logs
// @Description  Retrieves a paginated audit trail, optionally filtered by action
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        action  query     string  false  "Action filter"
// @Success      200     {object}  response.Response{data=pagination.Paged}
// @Failure      500     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	action := c.Query("action")

	logs, total, err := h.auditRepo.List(c.Request.Context(), middleware.CompanyID(c), p.Page, p.Limit, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(logs, total, p)))
}
