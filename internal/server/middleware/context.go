package middleware

import "context"

type contextKey string

const (
	ContextKeyActorID   contextKey = "actor_id"
	ContextKeyActorRole contextKey = "role"
)

func ActorIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyActorID).(int64)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActorRole).(string)
	return v, ok
}
