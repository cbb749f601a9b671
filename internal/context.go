package internal

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleUser      Role = "user"
)

// Actor is the authenticated principal a request acts as. It is a plain
// snapshot: the policy layer never reaches back into storage to enrich it.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

func (a Actor) IsSuperuser() bool {
	return a.Role == RoleSuperuser
}

type contextKey string

const ActorContextKey contextKey = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// GetActorFromContext extracts the authenticated actor from request context.
func GetActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(Actor)
	if !ok {
		return Actor{}, false
	}
	return actor, true
}
