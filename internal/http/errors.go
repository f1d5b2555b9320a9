package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bigfive-core/internal/domain"
)

// respondError traduce los errores de dominio a status HTTP. Los no clasificados
// se registran y salen como 500 sin detalle.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var missing *domain.MissingResultError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"diagnostics": gin.H{
				"user_id":           missing.UserID,
				"user_name":         missing.UserName,
				"user_email":        missing.UserEmail,
				"assignments_found": missing.AssignmentsFound,
				"completed":         missing.Completed,
				"with_result":       missing.WithResult,
				"with_responses":    missing.WithResponses,
				"causes":            missing.Causes,
			},
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidConnection), errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrAssignmentBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDataIntegrity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()), zap.String("method", c.Request.Method), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
