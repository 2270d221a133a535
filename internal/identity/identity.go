// Package identity holds the roles known to the registrar and the acting
// principal carried through request contexts.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent      Role = "student"
	RoleStaff        Role = "staff"
	RoleAdmin        Role = "admin"
	RoleSAScheduling Role = "sa_scheduling"
	RoleSAReleasing  Role = "sa_releasing"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleStaff, RoleAdmin, RoleSAScheduling, RoleSAReleasing}

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleStaff, RoleAdmin, RoleSAScheduling, RoleSAReleasing:
		return r, nil
	}

	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaffSide reports whether the role acts on requests rather than making them.
func (r Role) IsStaffSide() bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleSAScheduling, RoleSAReleasing:
		return true
	case RoleStudent:
		return false
	}

	return false
}

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}

	return false
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
