package shared

import "context"

type actorKey struct{}

// WithActor stores the authenticated actor id on the context.
func WithActor(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the authenticated actor id, or 0 for unauthenticated
// contexts (jobs, tests).
func ActorFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey{}).(int64)
	return id
}
