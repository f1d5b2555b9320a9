package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bigfive-core/internal/service"
)

// ComparisonHandler expone los reportes de compatibilidad entre conexiones.
type ComparisonHandler struct {
	logger *zap.Logger
	cross  *service.CrossProfileService
}

func NewComparisonHandler(logger *zap.Logger, cross *service.CrossProfileService) *ComparisonHandler {
	return &ComparisonHandler{logger: logger, cross: cross}
}

// Compare maneja POST /connections/:id/compare. El autor es el usuario autenticado.
func (h *ComparisonHandler) Compare(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	report, err := h.cross.CompareProfiles(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListReports maneja GET /connections/:id/reports.
func (h *ComparisonHandler) ListReports(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	reports, err := h.cross.ListReports(c.Request.Context(), c.Param("id"), viewer(claims))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport maneja GET /reports/:id.
func (h *ComparisonHandler) GetReport(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	report, err := h.cross.GetReport(c.Request.Context(), c.Param("id"), viewer(claims))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func viewer(claims service.Claims) service.ReportViewer {
	return service.ReportViewer{UserID: claims.UserID, TenantID: claims.TenantID, Role: claims.Role}
}
