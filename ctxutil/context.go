package ctxutil

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey string

const (
	ginContextKey ctxKey = "gin_context"

	// TraceIDKey is the field name used for trace ids in logs and headers.
	TraceIDKey = "trace_id"
)

// TraceIDHeader is the response header echoing the request trace id.
const TraceIDHeader = "X-Trace-Id"

// WithGinContext stores the gin context in ctx.
func WithGinContext(ctx context.Context, c *gin.Context) context.Context {
	return context.WithValue(ctx, ginContextKey, c)
}

// GetGinContext returns the gin context stored in ctx, if any.
func GetGinContext(ctx context.Context) (*gin.Context, bool) {
	c, ok := ctx.Value(ginContextKey).(*gin.Context)
	return c, ok
}

// GetTraceID gets trace id from context.Context or the attached gin.Context.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ctxKey(TraceIDKey)).(string); ok {
		return traceID
	}
	if c, ok := GetGinContext(ctx); ok {
		return c.GetString(TraceIDKey)
	}
	return ""
}

// SetTraceID sets trace id to context.Context and the attached gin.Context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if c, ok := GetGinContext(ctx); ok {
		c.Set(TraceIDKey, traceID)
	}
	return context.WithValue(ctx, ctxKey(TraceIDKey), traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := uuid.NewString()
	return SetTraceID(ctx, traceID), traceID
}
