package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/histwindow-go/internal/logging"
)

// RequestLogging emits one structured log line per request.
func RequestLogging(logger *logging.StandardLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithRequestID(GetRequestID(c)).Info("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"event", "api",
		)
	}
}
