package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/histwindow-go/internal/api/handlers"
	"github.com/irfndi/histwindow-go/internal/logging"
	"github.com/irfndi/histwindow-go/internal/middleware"
)

// Handlers collects the handler set the router mounts.
type Handlers struct {
	Health  *handlers.HealthHandler
	History *handlers.HistoryHandler
	Pit     *handlers.PitHandler
	Cache   *handlers.CacheHandler
}

// SetupRoutes mounts middleware and the API surface on the router.
func SetupRoutes(router *gin.Engine, logger *logging.StandardLogger, h Handlers) {
	router.Use(
		otelgin.Middleware("histwindow"),
		middleware.RequestID(),
		middleware.RequestLogging(logger),
	)

	router.GET("/health", h.Health.HealthCheck)
	router.GET("/live", h.Health.LivenessCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/history", h.History.GetHistory)

		datasets := v1.Group("/datasets")
		{
			datasets.GET("/:dataset/:column/series", h.Pit.GetSeries)
		}

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", h.Cache.GetStats)
			cacheGroup.POST("/stats/persist", h.Cache.Persist)
		}
	}
}
