// Package ctxutil carries request-scoped values (trace id, gin context)
// through context.Context and derives contexts for background work.
//
//	ctx, traceID := ctxutil.EnsureTraceID(ctx)
//	bg := ctxutil.Detach(ctx)
package ctxutil
