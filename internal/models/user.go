package models

import (
	"time"

	"github.com/google/uuid"
)

// Group names a role membership.
const (
	GroupAdmin     = "admin"
	GroupOrganizer = "organizer"
)

// ValidGroup reports whether g is a known group name.
func ValidGroup(g string) bool {
	return g == GroupAdmin || g == GroupOrganizer
}

// User represents a platform user.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
	Groups       []string  `json:"groups"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsSuperuser bool      `json:"is_superuser"`
	Groups      []string  `json:"groups"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return UserPublic{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
		Groups:      groups,
		CreatedAt:   u.CreatedAt,
	}
}
