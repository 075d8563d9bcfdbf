package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency per route template.  The route
// template keeps label cardinality bounded regardless of path parameters.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
