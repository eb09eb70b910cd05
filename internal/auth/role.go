// Package auth resolves user roles and admits or denies routes by role.
package auth

import "strings"

// Role is the authorization class of a user.
type Role int

const (
	RoleUnknown Role = iota
	RoleStudent
	RoleTeacher
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// RoleSet is the set of roles permitted to trigger a route.
type RoleSet map[Role]struct{}

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Common route requirements.
var (
	AnyRole     = Roles(RoleUnknown, RoleStudent, RoleTeacher, RoleAdmin)
	AdminOnly   = Roles(RoleAdmin)
	TeacherOnly = Roles(RoleTeacher)
	StudentOnly = Roles(RoleStudent)
	Enrolled    = Roles(RoleStudent, RoleTeacher)
)

// Contains reports whether r belongs to the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(s))
	for _, r := range []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleUnknown} {
		if s.Contains(r) {
			names = append(names, r.String())
		}
	}
	return strings.Join(names, ",")
}
