package handler

import (
	"errors"
	"net/http"

	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/internal/service"
	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// derefStrings returns the slice behind p, or an empty slice
func derefStrings(p *[]string) []string {
	if p == nil {
		return []string{}
	}
	return *p
}

func badRequest(c *gin.Context, message string, err error) {
	resp := api.ErrorResponse{
		Code:    api.CodeValidationError,
		Message: message,
	}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondError maps a service error to the matching ErrorResponse.
// Validation failures become 400, missing resources 404 and anything else 500.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidSettings), errors.Is(err, service.ErrInvalidHistory):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.CodeValidationError,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNotificationNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    api.CodeNotFound,
			Message: "Resource not found",
			Details: stringPtr(err.Error()),
		})
	default:
		logger.Error("request failed",
			zap.Error(err),
			zap.String("reason", message),
			zap.String("request_id", c.GetString("request_id")),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    api.CodeInternalError,
			Message: message,
			Details: stringPtr(err.Error()),
		})
	}
}
