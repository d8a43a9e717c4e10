package ctxutil

import (
	"context"
	"time"
)

// DefaultAsyncTimeout is the default timeout for async operations
const DefaultAsyncTimeout = 5 * time.Second

// Detach returns a context that keeps parent values (trace id) but is never
// cancelled with it. Background jobs outliving a request start from here.
func Detach(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// WithAsyncContext creates a detached context bounded by timeout.
func WithAsyncContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = DefaultAsyncTimeout
	}
	return context.WithTimeout(Detach(parent), timeout)
}
