package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit writes an audit trail entry for every request once the response has
// been sent. It only logs; it can never block or fail the request path.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	audit := logger.Named("audit")
	return func(c *gin.Context) {
		c.Next()

		username := "anonymous"
		if actor, ok := Actor(c); ok {
			username = actor.Username
		}

		audit.Info("request",
			zap.String("user", username),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.RequestURI()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
		)
	}
}
