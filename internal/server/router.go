package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge-backend/internal/handlers"
	"github.com/clipforge/clipforge-backend/internal/middleware"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log           *logger.Logger
	JobHandler    *handlers.JobHandler
	BatchHandler  *handlers.BatchHandler
	VideoHandler  *handlers.VideoHandler
	SSEHandler    *handlers.SSEHandler
	MetaHandler   *handlers.MetaHandler
	HealthHandler *handlers.HealthHandler
	CORSOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Check)
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	api := router.Group("/api")
	{
		api.POST("/jobs", cfg.JobHandler.Create)
		api.GET("/jobs", cfg.JobHandler.List)
		api.GET("/jobs/:id", cfg.JobHandler.Get)
		api.POST("/jobs/:id/retry", cfg.JobHandler.Retry)
		api.POST("/jobs/:id/cancel", cfg.JobHandler.Cancel)

		api.POST("/batches", cfg.BatchHandler.Create)
		api.GET("/batches/:id", cfg.BatchHandler.Status)
		api.POST("/batches/:id/start", cfg.BatchHandler.Start)
		api.POST("/batches/:id/cancel", cfg.BatchHandler.Cancel)

		api.GET("/processing-flows", cfg.MetaHandler.ProcessingFlows)
		api.GET("/aspect-ratios", cfg.MetaHandler.AspectRatios)

		api.POST("/video/extract-highlights", cfg.VideoHandler.ExtractHighlights)
		api.POST("/video/merge-split-screen", cfg.VideoHandler.MergeSplitScreen)
		api.POST("/video/convert", cfg.VideoHandler.Convert)
	}

	return router
}
