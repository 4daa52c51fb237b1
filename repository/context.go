package repository

import "context"

type correlationIDContextKey struct{}
type actorContextKey struct{}

// WithCorrelationID attaches a request correlation ID to the context; query
// monitor reports carry it so slow queries can be traced back to a request.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

// CorrelationID returns the correlation ID attached to the context, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDContextKey{}).(string); ok {
		return id
	}
	return ""
}

// WithActor records who performs the mutations in this context; audit events
// carry the actor ID.
func WithActor(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// Actor returns the acting principal attached to the context, if any.
func Actor(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(actorContextKey{}).(string); ok {
		return id
	}
	return ""
}
