// Package authz is the ownership authorization engine. Every controller
// delegates its allow/deny decision here instead of re-implementing the
// owner-or-admin rule inline.
package authz

import "github.com/tkellner/homelab-manager/internal/db"

// Actor is the authenticated identity making a request.
type Actor struct {
	ID       int64
	Username string
	Role     db.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == db.RoleAdmin
}

// CanAccess decides whether the actor may read or mutate a resource whose
// effective owner is ownerUserID. Admins are always allowed; everyone else
// only on their own resources. Callers must confirm the resource exists
// before asking, so a deny never leaks existence.
func CanAccess(actor Actor, ownerUserID int64) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == ownerUserID
}

// ListScope returns the owner id the repository should scope list queries to:
// nil for admins (no scope), the actor's own id otherwise.
func ListScope(actor Actor) *int64 {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.ID
	return &id
}
