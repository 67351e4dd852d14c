// Package authz holds the single authorization rule applied to every directory
// operation: a caller may act on a user record when it is their own record
// or when they are an admin, with a few actions narrowed to one side.
package authz

import (
	"github.com/dom/tps-identity/internal/token"
	"github.com/google/uuid"
)

type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
	// ActionRotatePassword is self-only, even for admins.
	ActionRotatePassword
	ActionSetRole
	ActionList
	ActionCreateAdmin
	ActionWatchEvents
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionRotatePassword:
		return "rotate_password"
	case ActionSetRole:
		return "set_role"
	case ActionList:
		return "list"
	case ActionCreateAdmin:
		return "create_admin"
	case ActionWatchEvents:
		return "watch_events"
	default:
		return "unknown"
	}
}

// Allowed reports whether claims may perform action on target. target is
// ignored for directory-wide actions.
func Allowed(claims *token.SessionClaims, action Action, target uuid.UUID) bool {
	if claims == nil {
		return false
	}

	switch action {
	case ActionRead, ActionUpdate, ActionDelete:
		return claims.Admin || isSelf(claims, target)
	case ActionRotatePassword:
		return isSelf(claims, target)
	case ActionSetRole, ActionList, ActionCreateAdmin, ActionWatchEvents:
		return claims.Admin
	default:
		return false
	}
}

func isSelf(claims *token.SessionClaims, target uuid.UUID) bool {
	id, err := claims.UserID()
	if err != nil {
		return false
	}
	return id == target
}
