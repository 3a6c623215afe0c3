package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coachflow-backend/internal/observability"
)

// Metrics records request counts and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		observability.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
