package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
	"bigfive-core/internal/service"
)

// ScoringHandler expone scores, interpretaciones y submisiones de un assignment.
type ScoringHandler struct {
	logger      *zap.Logger
	assignments repository.AssignmentRepository
	scoring     *service.ScoringService
	repair      *service.RepairService
	submission  *service.SubmissionService
}

func NewScoringHandler(
	logger *zap.Logger,
	assignments repository.AssignmentRepository,
	scoring *service.ScoringService,
	repair *service.RepairService,
	submission *service.SubmissionService,
) *ScoringHandler {
	return &ScoringHandler{
		logger:      logger,
		assignments: assignments,
		scoring:     scoring,
		repair:      repair,
		submission:  submission,
	}
}

// GetScores maneja GET /assignments/:id/scores.
func (h *ScoringHandler) GetScores(c *gin.Context) {
	a, ok := h.authorizeAssignment(c)
	if !ok {
		return
	}
	res, err := h.scoring.ComputeScores(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assignment_id": a.ID,
		"config_id":     res.Config.ID,
		"method":        res.Method,
		"scores":        res.Scores,
		"thresholds":    res.Config.Thresholds,
	})
}

// GetInterpretation maneja GET /assignments/:id/interpretation?config_id=.
func (h *ScoringHandler) GetInterpretation(c *gin.Context) {
	a, ok := h.authorizeAssignment(c)
	if !ok {
		return
	}
	configID := strings.TrimSpace(c.Query("config_id"))
	out, err := h.scoring.BuildInterpretation(c.Request.Context(), a.ID, a.TenantID, configID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interpretation": out})
}

// GetResult maneja GET /assignments/:id/result. Repara el resultado si falta.
func (h *ScoringHandler) GetResult(c *gin.Context) {
	a, ok := h.authorizeAssignment(c)
	if !ok {
		return
	}
	res, found, err := h.repair.GetOrRepair(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "assignment has no responses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// Submit maneja POST /assignments/:id/responses.
func (h *ScoringHandler) Submit(c *gin.Context) {
	a, ok := h.authorizeAssignment(c)
	if !ok {
		return
	}
	var req struct {
		Answers []domain.Answer `json:"answers" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid submission request", zap.String("assignment_id", a.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	res, err := h.submission.Submit(c.Request.Context(), a.ID, req.Answers)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": res})
}

// Repair maneja POST /assignments/:id/repair (admin). Recalcula siempre.
func (h *ScoringHandler) Repair(c *gin.Context) {
	a, ok := h.authorizeAssignment(c)
	if !ok {
		return
	}
	res, found, err := h.repair.Repair(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaired": found, "result": res})
}

// authorizeAssignment carga el assignment y verifica que el usuario sea el dueno
// o un admin de su tenant. Escribe la respuesta de error si no.
func (h *ScoringHandler) authorizeAssignment(c *gin.Context) (domain.Assignment, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Assignment{}, false
	}
	a, err := h.assignments.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return domain.Assignment{}, false
	}
	switch {
	case a.UserID == claims.UserID:
	case claims.Role == domain.RoleSuperAdmin:
	case claims.Role == domain.RoleTenantAdmin && a.TenantID == claims.TenantID:
	default:
		// mismo 404 que un assignment inexistente.
		respondError(c, h.logger, domain.ErrAssignmentNotFound)
		return domain.Assignment{}, false
	}
	return a, true
}
