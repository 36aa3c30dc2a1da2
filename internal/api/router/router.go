package router

import (
	"github.com/cuongbtq/resume-analyzer/internal/api/handler"
	"github.com/cuongbtq/resume-analyzer/internal/metrics"
	"github.com/gin-gonic/gin"
)

const serviceName = "resume-analyzer-api"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(CorrelationIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(deps.AllowedOrigins))
	r.Use(metrics.GinMiddleware())
	if deps.RequestTimeout > 0 {
		r.Use(TimeoutMiddleware(deps.RequestTimeout))
	}

	r.GET("/health", handler.Health(serviceName, deps.HealthChecks))
	r.GET("/metrics", metrics.Handler())

	analysisHandler := handler.NewAnalysisHandler(deps)

	v1 := r.Group("/api/v1")
	{
		candidates := v1.Group("/candidates")
		{
			// POST /api/v1/candidates/analysis/bulk - Analyze up to 50 candidates
			candidates.POST("/analysis/bulk", analysisHandler.AnalyzeBulk)

			// POST /api/v1/candidates/:candidate_id/analysis - Analyze one candidate
			candidates.POST("/:candidate_id/analysis", analysisHandler.AnalyzeCandidate)

			// POST /api/v1/candidates/:candidate_id/analysis/async - Queue an analysis
			candidates.POST("/:candidate_id/analysis/async", analysisHandler.AnalyzeCandidateAsync)
		}
	}

	return r
}
