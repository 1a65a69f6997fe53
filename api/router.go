package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/api/handlers"
	"github.com/yourusername/sonic-extract-go/api/middleware"
	"github.com/yourusername/sonic-extract-go/internal/app"
	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	scheduler *app.Scheduler,
	history domain.HistoryRepository,
	throttle *domain.ThrottleConfig,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(scheduler)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		taskHandler := handlers.NewTaskHandler(scheduler, log)
		guard := middleware.Throttle(throttle, log)

		tasks := v1.Group("/tasks")
		{
			tasks.POST("/downloads", guard, taskHandler.AddDownload)
			tasks.POST("/conversions", guard, taskHandler.AddConversion)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/pause", taskHandler.PauseTask)
			tasks.POST("/:id/resume", taskHandler.ResumeTask)
			tasks.POST("/:id/cancel", taskHandler.CancelTask)
		}

		if history != nil {
			historyHandler := handlers.NewHistoryHandler(history, log)
			v1.GET("/history", historyHandler.ListHistory)
			v1.GET("/history/stats", historyHandler.GetHistoryStats)
		}

		eventHandler := handlers.NewEventWebSocketHandler(scheduler, log)
		v1.GET("/events", eventHandler.HandleWebSocket)
	}

	return router
}
