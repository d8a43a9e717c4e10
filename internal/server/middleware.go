package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/ctxutil"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/net/resp"
)

// traceMiddleware attaches a trace id to the request context, reusing the
// client's X-Trace-Id when sent
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithGinContext(c.Request.Context(), c)
		if id := c.GetHeader(ctxutil.TraceIDHeader); id != "" {
			ctx = ctxutil.SetTraceID(ctx, id)
		}
		ctx, traceID := ctxutil.EnsureTraceID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(ctxutil.TraceIDHeader, traceID)
		c.Next()
	}
}

// loggerMiddleware creates request logging middleware.
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", method,
			"path", path,
			"status", status,
			"duration", time.Since(start).String(),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn(c.Request.Context(), "HTTP request", kv...)
			return
		}
		logger.Debug(c.Request.Context(), "HTTP request", kv...)
	}
}

// recoveryMiddleware turns handler panics into 500 responses
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), fmt.Sprintf("Unhandled API error: %v", recovered),
			"path", c.Request.URL.Path,
		)
		resp.Fail(c.Writer, resp.InternalServer("An unknown error occurred"))
		c.Abort()
	})
}
