package ctxdata

import (
	"context"
)

type traceIDKey struct{}

var (
	traceIDKeyInstance = traceIDKey{}
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKeyInstance, traceID)
}

func GetTraceID(ctx context.Context) (string, bool) {
	v := ctx.Value(traceIDKeyInstance)
	traceID, ok := v.(string)
	return traceID, ok && traceID != ""
}
