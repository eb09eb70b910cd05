package auth

import (
	"context"
	"fmt"
)

// Decision is the outcome of Gate.Admit.
type Decision struct {
	Allowed bool
	// Role is the highest role the user holds among those checked.
	Role   Role
	Reason string
}

// Gate admits a user to a route when they hold any of the route's required roles.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Resolver returns the gate's resolver.
func (g *Gate) Resolver() *Resolver {
	return g.resolver
}

// Admit checks membership per required role, admin first. A user that is both teacher and student is admitted
// to routes of either role. Infrastructure failures are returned as errors, never as a denial.
func (g *Gate) Admit(ctx context.Context, userID int64, required RoleSet) (Decision, error) {
	if len(required) == 0 {
		return Decision{Allowed: false, Role: RoleUnknown, Reason: "route declares no roles"}, nil
	}

	for _, role := range []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleUnknown} {
		if !required.Contains(role) {
			continue
		}

		ok, err := g.resolver.HasRole(ctx, userID, role)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return Decision{Allowed: true, Role: role}, nil
		}
	}

	actual, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed: false,
		Role:    actual,
		Reason:  fmt.Sprintf("role %s not in [%s]", actual, required),
	}, nil
}
