package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/seed"
	"bigfive-core/internal/service"
)

// maxSeedBytes acota el cuerpo de POST /admin/configs/import.
const maxSeedBytes = 1 << 20

// AdminHandler expone la administracion de configuraciones y la auditoria de resultados.
type AdminHandler struct {
	logger  *zap.Logger
	configs *service.ConfigService
	audit   *service.AuditService
}

func NewAdminHandler(logger *zap.Logger, configs *service.ConfigService, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{logger: logger, configs: configs, audit: audit}
}

// ListConfigs maneja GET /admin/configs.
func (h *AdminHandler) ListConfigs(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	list, err := h.configs.ListConfigs(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": list})
}

// CreateConfig maneja POST /admin/configs.
func (h *AdminHandler) CreateConfig(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req service.CreateConfigInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create config request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cfg, err := h.configs.CreateConfig(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"config": cfg})
}

// GetSettings maneja GET /admin/configs/:id.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	cfg, err := h.configs.GetSettings(c.Request.Context(), tenant, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// UpdateThresholds maneja PUT /admin/configs/:id/thresholds.
func (h *AdminHandler) UpdateThresholds(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.Thresholds
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.configs.UpdateThresholds(c.Request.Context(), tenant, c.Param("id"), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thresholds": req})
}

// CreateTrait maneja POST /admin/configs/:id/traits.
func (h *AdminHandler) CreateTrait(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.TraitConfig
	if !bindJSON(c, h.logger, &req) {
		return
	}
	t, err := h.configs.CreateTrait(c.Request.Context(), tenant, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trait": t})
}

// UpdateTrait maneja PATCH /admin/configs/:id/traits/:trait.
func (h *AdminHandler) UpdateTrait(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req service.TraitPatch
	if !bindJSON(c, h.logger, &req) {
		return
	}
	t, err := h.configs.UpdateTrait(c.Request.Context(), tenant, c.Param("id"), c.Param("trait"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trait": t})
}

// CreateFacet maneja POST /admin/configs/:id/traits/:trait/facets.
func (h *AdminHandler) CreateFacet(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.FacetConfig
	if !bindJSON(c, h.logger, &req) {
		return
	}
	f, err := h.configs.CreateFacet(c.Request.Context(), tenant, c.Param("id"), c.Param("trait"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"facet": f})
}

// UpdateFacet maneja PATCH /admin/configs/:id/traits/:trait/facets/:facet.
func (h *AdminHandler) UpdateFacet(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req service.FacetPatch
	if !bindJSON(c, h.logger, &req) {
		return
	}
	f, err := h.configs.UpdateFacet(c.Request.Context(), tenant, c.Param("id"), c.Param("trait"), c.Param("facet"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facet": f})
}

// AddText maneja POST /admin/configs/:id/texts.
func (h *AdminHandler) AddText(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.InterpretiveText
	if !bindJSON(c, h.logger, &req) {
		return
	}
	t, err := h.configs.AddText(c.Request.Context(), tenant, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"text": t})
}

// UpdateText maneja PUT /admin/configs/:id/texts/:textId.
func (h *AdminHandler) UpdateText(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.InterpretiveText
	if !bindJSON(c, h.logger, &req) {
		return
	}
	t, err := h.configs.UpdateText(c.Request.Context(), tenant, c.Param("id"), c.Param("textId"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": t})
}

// DeleteText maneja DELETE /admin/configs/:id/texts/:textId.
func (h *AdminHandler) DeleteText(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	if err := h.configs.DeleteText(c.Request.Context(), tenant, c.Param("id"), c.Param("textId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddRecommendation maneja POST /admin/configs/:id/recommendations.
func (h *AdminHandler) AddRecommendation(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.Recommendation
	if !bindJSON(c, h.logger, &req) {
		return
	}
	rec, err := h.configs.AddRecommendation(c.Request.Context(), tenant, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recommendation": rec})
}

// UpdateRecommendation maneja PUT /admin/configs/:id/recommendations/:recId.
func (h *AdminHandler) UpdateRecommendation(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	var req domain.Recommendation
	if !bindJSON(c, h.logger, &req) {
		return
	}
	rec, err := h.configs.UpdateRecommendation(c.Request.Context(), tenant, c.Param("id"), c.Param("recId"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

// DeleteRecommendation maneja DELETE /admin/configs/:id/recommendations/:recId.
func (h *AdminHandler) DeleteRecommendation(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	if err := h.configs.DeleteRecommendation(c.Request.Context(), tenant, c.Param("id"), c.Param("recId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Activate maneja POST /admin/configs/:id/activate.
func (h *AdminHandler) Activate(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	if err := h.configs.Activate(c.Request.Context(), tenant, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_config_id": c.Param("id")})
}

// CreateDefault maneja POST /admin/configs/default.
func (h *AdminHandler) CreateDefault(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	cfg, err := h.configs.CreateDefaultConfig(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"config": cfg})
}

// Import maneja POST /admin/configs/import con un documento YAML en el cuerpo.
func (h *AdminHandler) Import(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	doc, err := seed.LoadConfiguration(http.MaxBytesReader(c.Writer, c.Request.Body, maxSeedBytes), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cfg, err := h.configs.ImportConfiguration(c.Request.Context(), doc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"config": cfg, "questions": len(doc.Questions)})
}

// FixFacets maneja POST /admin/configs/fix-facets.
func (h *AdminHandler) FixFacets(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	fixes, err := h.configs.FixMissingFacets(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fixed": fixes})
}

// PopulateTexts maneja POST /admin/configs/populate-texts.
func (h *AdminHandler) PopulateTexts(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	n, err := h.configs.PopulateTexts(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}

// LinkAssignments maneja POST /admin/assignments/link-config.
func (h *AdminHandler) LinkAssignments(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	n, err := h.configs.LinkAssignmentsToActive(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": n})
}

// MissingResults maneja GET /admin/audit/missing-results.
func (h *AdminHandler) MissingResults(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	list, err := h.audit.MissingResults(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missing": list, "count": len(list)})
}

// RepairAll maneja POST /admin/audit/repair.
func (h *AdminHandler) RepairAll(c *gin.Context) {
	tenant, ok := h.tenant(c)
	if !ok {
		return
	}
	out, err := h.audit.RepairAll(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": out})
}

func bindJSON(c *gin.Context, logger *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn("invalid admin request", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func (h *AdminHandler) tenant(c *gin.Context) (string, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	tenant := tenantScope(c, claims)
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return "", false
	}
	return tenant, true
}
