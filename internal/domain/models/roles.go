package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the single capability class attached to a user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Actor is the identity performing an operation, as attached by the
// authentication gate. Role comes from the token and may be stale until
// the next login.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
