package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/histwindow-go/internal/cache"
)

// CacheHandler exposes window cache analytics.
type CacheHandler struct {
	analytics *cache.Analytics
}

func NewCacheHandler(analytics *cache.Analytics) *CacheHandler {
	return &CacheHandler{analytics: analytics}
}

// GetStats handles GET /api/v1/cache/stats. An optional category query
// narrows the response to one field/frequency bucket.
func (h *CacheHandler) GetStats(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, gin.H{
			"category": category,
			"stats":    h.analytics.GetStats(category),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":     h.analytics.GetAllStats(),
		"timestamp": time.Now().UTC(),
	})
}

// Persist handles POST /api/v1/cache/stats/persist, flushing counters to
// Redis so they survive restarts.
func (h *CacheHandler) Persist(c *gin.Context) {
	if err := h.analytics.Persist(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"persisted": true})
}
