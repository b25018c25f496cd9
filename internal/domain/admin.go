package domain

import "time"

// AdminRole enumerates back-office roles.
type AdminRole string

const (
	AdminRoleSupport    AdminRole = "support"
	AdminRoleManager    AdminRole = "manager"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

// Valid reports whether r is a known role.
func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleSupport, AdminRoleManager, AdminRoleSuperAdmin:
		return true
	}
	return false
}

// Admin is a staff member working the support queue.
type Admin struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         AdminRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
