package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
)

// RequestLog logs one structured line per request. SSE streams are
// skipped; they hold the connection open and would log on disconnect
// with a misleading latency.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	log = log.With("component", "http")
	return func(c *gin.Context) {
		if c.FullPath() == "/sse/stream" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
