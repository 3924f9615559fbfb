package domain

import "github.com/google/uuid"

// Actor is the authenticated identity performing an operation, as supplied
// by the auth middleware. The core treats it as an opaque capability set.
type Actor struct {
	ID    uuid.UUID
	Role  ReviewerRole
	Areas []ReviewArea
}

// IsAdmin reports whether the actor holds an administrative role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSupervisor
}

// HasAreaAccess reports whether the actor may act on the given area.
// Admins and supervisors always may; reviewers need an explicit or
// wildcard grant.
func (a Actor) HasAreaAccess(area ReviewArea) bool {
	if a.IsAdmin() {
		return true
	}
	for _, granted := range a.Areas {
		if granted == area || granted == AreaAll {
			return true
		}
	}
	return false
}
