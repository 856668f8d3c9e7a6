package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ghoul-sol/treasure-marketplace/errcode"
	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/xhttp"
)

// RecoverMiddleware turns handler panics into a 500 response instead of
// killing the process.
func RecoverMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				xzap.WithContext(c.Request.Context()).Error("handler panic",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path))
				xhttp.Error(c, errcode.ErrUnexpected)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RLog logs one line per request with latency and status.
func RLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		xzap.WithContext(c.Request.Context()).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
