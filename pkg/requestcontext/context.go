// Package requestcontext provides HTTP-independent context accessors for
// request- and run-scoped values.
//
// Usage in the import runner:
//
//	ctx = requestcontext.WithBatch(ctx, batchID, "payroll")
//	feed := requestcontext.Feed(ctx)
package requestcontext

import (
	"context"

	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

type (
	requestIDKey struct{}
	batchIDKey   struct{}
	feedKey      struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID = requestIDKey{}
	ContextKeyBatchID   = batchIDKey{}
	ContextKeyFeed      = feedKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// BatchID retrieves the batch being processed. Zero when outside a run.
func BatchID(ctx context.Context) id.BatchID {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(id.BatchID); ok {
		return batchID
	}
	return id.BatchID{}
}

// Feed retrieves the feed name of the current run.
func Feed(ctx context.Context) string {
	if feed, ok := ctx.Value(ContextKeyFeed).(string); ok {
		return feed
	}
	return ""
}

// WithBatch injects the batch id and feed name for the current run.
func WithBatch(ctx context.Context, batchID id.BatchID, feed string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyBatchID, batchID)
	return context.WithValue(ctx, ContextKeyFeed, feed)
}
