package services

import (
	"context"

	"techlight-support/internal/domain"
)

type actorCtxKey struct{}

// WithActor stores the authenticated actor in the request context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext retrieves the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(domain.Actor)
	return actor, ok
}
