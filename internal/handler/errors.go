package handler

import (
	"errors"
	"net/http"

	"skustack/internal/apperror"
	"skustack/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError translates service errors into HTTP responses. Structured
// errors carry their payload through the details field so clients can
// render shortfalls and version conflicts without parsing messages.
func respondError(c *gin.Context, err error) {
	var insufficientErr *apperror.InsufficientInventoryError
	if errors.As(err, &insufficientErr) {
		c.JSON(http.StatusUnprocessableEntity, response.ErrorWithDetails(
			http.StatusUnprocessableEntity, insufficientErr.Error(), insufficientErr.Items))
		return
	}

	var versionErr *apperror.VersionConflictError
	if errors.As(err, &versionErr) {
		c.JSON(http.StatusConflict, response.ErrorWithDetails(
			http.StatusConflict, versionErr.Error(), gin.H{
				"entity":           versionErr.Entity,
				"expected_version": versionErr.Expected,
				"actual_version":   versionErr.Actual,
			}))
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrVersionConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, apperror.ErrInsufficientInventory):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
