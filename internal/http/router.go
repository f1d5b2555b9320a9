package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"bigfive-core/internal/service"
)

// RouterDeps agrupa los handlers y servicios que necesita NewRouter.
type RouterDeps struct {
	ServiceName string
	JWT         *service.JWTService
	Scoring     *ScoringHandler
	Comparison  *ComparisonHandler
	Admin       *AdminHandler
}

// NewRouter configura el router de Gin con middlewares y rutas /api/v1.
func NewRouter(logger *zap.Logger, deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", JWTAuthMiddleware(deps.JWT))

	assignments := api.Group("/assignments/:id")
	assignments.GET("/scores", deps.Scoring.GetScores)
	assignments.GET("/interpretation", deps.Scoring.GetInterpretation)
	assignments.GET("/result", deps.Scoring.GetResult)
	assignments.POST("/responses", deps.Scoring.Submit)
	assignments.POST("/repair", RequireAdmin(), deps.Scoring.Repair)

	api.POST("/connections/:id/compare", deps.Comparison.Compare)
	api.GET("/connections/:id/reports", deps.Comparison.ListReports)
	api.GET("/reports/:id", deps.Comparison.GetReport)

	admin := api.Group("/admin", RequireAdmin())
	admin.GET("/configs", deps.Admin.ListConfigs)
	admin.POST("/configs", deps.Admin.CreateConfig)
	admin.POST("/configs/default", deps.Admin.CreateDefault)
	admin.POST("/configs/import", deps.Admin.Import)
	admin.POST("/configs/fix-facets", deps.Admin.FixFacets)
	admin.POST("/configs/populate-texts", deps.Admin.PopulateTexts)
	admin.GET("/configs/:id", deps.Admin.GetSettings)
	admin.PUT("/configs/:id/thresholds", deps.Admin.UpdateThresholds)
	admin.POST("/configs/:id/traits", deps.Admin.CreateTrait)
	admin.PATCH("/configs/:id/traits/:trait", deps.Admin.UpdateTrait)
	admin.POST("/configs/:id/traits/:trait/facets", deps.Admin.CreateFacet)
	admin.PATCH("/configs/:id/traits/:trait/facets/:facet", deps.Admin.UpdateFacet)
	admin.POST("/configs/:id/texts", deps.Admin.AddText)
	admin.PUT("/configs/:id/texts/:textId", deps.Admin.UpdateText)
	admin.DELETE("/configs/:id/texts/:textId", deps.Admin.DeleteText)
	admin.POST("/configs/:id/recommendations", deps.Admin.AddRecommendation)
	admin.PUT("/configs/:id/recommendations/:recId", deps.Admin.UpdateRecommendation)
	admin.DELETE("/configs/:id/recommendations/:recId", deps.Admin.DeleteRecommendation)
	admin.POST("/configs/:id/activate", deps.Admin.Activate)
	admin.POST("/assignments/link-config", deps.Admin.LinkAssignments)
	admin.GET("/audit/missing-results", deps.Admin.MissingResults)
	admin.POST("/audit/repair", deps.Admin.RepairAll)

	return r
}

// zapLoggerMiddleware registra cada request con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if claims, ok := GetAuthClaims(c); ok {
			fields = append(fields, zap.String("user_id", claims.UserID), zap.String("tenant_id", claims.TenantID))
		}
		logger.Info("request", fields...)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
