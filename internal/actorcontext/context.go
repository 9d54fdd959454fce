// Package actorcontext carries the authenticated actor through request
// contexts. Authorization decisions always read the actor from here, never
// from request payloads.
package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Actor roles known to the negotiation and interview state machines.
const (
	RoleRecruiter = "recruiter"
	RoleCollege   = "college"
	RoleStudent   = "student"
	RoleSystem    = "system"
)

// Actor identifies who is performing an operation.
type Actor struct {
	Role string
	ID   snowflake.ID
}

type actorKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, role string, id snowflake.ID) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{Role: normalizeRole(role), ID: id})
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.Role == "" {
		return Actor{}, false
	}
	return actor, true
}

// ValidRole reports whether the role is one the core understands.
func ValidRole(role string) bool {
	switch normalizeRole(role) {
	case RoleRecruiter, RoleCollege, RoleStudent, RoleSystem:
		return true
	default:
		return false
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
