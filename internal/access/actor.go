package access

import (
	"slices"

	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/models"
)

// Role is the closed set of roles, ordered by precedence.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleOrganizer
	RoleAdmin
	RoleSuperuser
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleOrganizer:
		return "organizer"
	case RoleAdmin:
		return "admin"
	case RoleSuperuser:
		return "superuser"
	default:
		return "anonymous"
	}
}

// Actor is the caller of an operation. The zero value is anonymous.
type Actor struct {
	UserID    uuid.UUID
	Superuser bool
	Groups    []string
}

// Anonymous returns an unauthenticated actor.
func Anonymous() Actor { return Actor{} }

// FromUser builds an actor from a stored user.
func FromUser(u *models.User) Actor {
	return Actor{UserID: u.ID, Superuser: u.IsSuperuser, Groups: u.Groups}
}

// Authenticated reports whether the actor is a known user.
func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil }

// InGroup reports group membership.
func (a Actor) InGroup(g string) bool { return slices.Contains(a.Groups, g) }

// Role returns the highest-precedence role the actor holds.
func (a Actor) Role() Role {
	switch {
	case !a.Authenticated():
		return RoleAnonymous
	case a.Superuser:
		return RoleSuperuser
	case a.InGroup(models.GroupAdmin):
		return RoleAdmin
	case a.InGroup(models.GroupOrganizer):
		return RoleOrganizer
	default:
		return RoleUser
	}
}
