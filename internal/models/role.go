package models

// Role is a user's capability tier inside their organization.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// ElevatedRoles may create, edit, and delete tasks and manage invite codes.
var ElevatedRoles = []Role{RoleAdmin, RoleManager}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// Rank orders roles from most to least privileged (admin = 0).
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleManager:
		return 1
	case RoleMember:
		return 2
	}
	return 3
}

// In reports whether r is contained in roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
