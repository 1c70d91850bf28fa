// internal/middleware/http.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
)

// RequestID is the HTTP counterpart of UnaryRequestIDInterceptor.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c.GetHeader(RequestIDHeader))
		c.Header(RequestIDHeader, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		ctx = logging.NewContext(ctx, logging.FromContext(ctx).With(
			zap.String("request_id", requestID),
			zap.String("route", c.FullPath()),
		))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Metrics records request latency by matched route and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPLatency(route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// AccessLog writes one line per request to the request logger.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
