package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"userapi/internal/pkg/metrics"
)

// Metrics labels requests by route template so ids do not explode the
// label space.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
