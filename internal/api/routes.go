package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status/today", handler.GetTodayStatus)
		v1.POST("/checks", handler.TriggerCheck)

		reports := v1.Group("/reports")
		{
			reports.GET("", handler.GetReports)
			reports.GET("/summary", handler.GetReportSummary)
		}
	}

	return router
}
