package ctxutil

import "context"

type requestIDKey struct{}

// Default treats a nil context as context.Background().
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(Default(ctx), requestIDKey{}, id)
}

// RequestID returns the id attached by the HTTP layer, or "" for background
// work such as cadence runs.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
