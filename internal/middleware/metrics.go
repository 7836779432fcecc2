package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mattva01/timetable-api/internal/service"
)

// Metrics records per-route request counts and latencies. Calendar range
// queries dominate traffic, so routes are labeled by gin's route template
// rather than the raw path to keep cardinality bounded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
