// Copyright (c) 2026 Cobalt. All rights reserved.

package sec

// # User Roles

// Role represents the authorization level granted to an account.
type Role string

const (
	// Default role for standard registered users
	RoleUser Role = "user"

	// Can manage other users and moderate platform content
	RoleAdmin Role = "admin"

	// Unrestricted system access; bypasses all permission checks
	RoleSuperAdmin Role = "super_admin"
)

// # Permissions

// Permission strings gate individual operations. They are minted into access
// tokens at issuance time and checked by the authorization middleware.
const (
	PermItemsRead   = "items:read"
	PermItemsWrite  = "items:write"
	PermItemsDelete = "items:delete"
	PermUsersRead   = "users:read"
	PermUsersManage = "users:manage"
)

// rolePermissions is the static role → permission grant table.
var rolePermissions = map[Role][]string{
	RoleUser: {
		PermItemsRead,
		PermItemsWrite,
	},
	RoleAdmin: {
		PermItemsRead,
		PermItemsWrite,
		PermItemsDelete,
		PermUsersRead,
		PermUsersManage,
	},
	// Super admins bypass permission checks entirely, but still carry the
	// admin grant set so tokens remain meaningful to external consumers.
	RoleSuperAdmin: {
		PermItemsRead,
		PermItemsWrite,
		PermItemsDelete,
		PermUsersRead,
		PermUsersManage,
	},
}

// IsValid reports whether the role is one of the closed enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsSuperAdmin reports whether the role grants the unconditional bypass.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// Permissions returns the permission grant set for the role.
//
// The returned slice is a copy; callers may not mutate the grant table.
func (r Role) Permissions() []string {
	grants := rolePermissions[r]
	out := make([]string, len(grants))
	copy(out, grants)
	return out
}
