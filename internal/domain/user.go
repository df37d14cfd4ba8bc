package domain

import "time"

// Role enumerates the three reporting levels of a sales team.
type Role string

const (
	RoleDirector Role = "DIRECTOR"
	RoleManager  Role = "MANAGER"
	RoleAgent    Role = "AGENT"
)

// Roles lists every recognized role.
func Roles() []Role {
	return []Role{RoleDirector, RoleManager, RoleAgent}
}

// ParseRole validates an externally supplied role value.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleDirector, RoleManager, RoleAgent:
		return Role(value), true
	default:
		return "", false
	}
}

// User is a member of the sales hierarchy. ManagerID points at the direct
// superior: nil for directors, a director for managers, a manager for agents.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ManagerID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportsTo reports whether the user directly reports to the given user ID.
func (u User) ReportsTo(id string) bool {
	return u.ManagerID != nil && *u.ManagerID == id
}
