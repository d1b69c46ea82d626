// internal/middleware/logging_middleware.go
package middleware

import (
	"gcu-service/internal/utils"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs every API request with its request id
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			utils.GetRequestID(c),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
		)
	}
}
