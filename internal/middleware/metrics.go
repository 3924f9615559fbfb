package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"project-review-api/internal/metrics"
)

// Metrics records request count and latency for every API route. Health and
// metrics endpoints are excluded so scraping does not inflate the series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics.ShouldSkipEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// The route pattern, not the raw path, keeps label cardinality bounded
		m.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
