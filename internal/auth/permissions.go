package auth

// Permission is a user's access level. Levels are ordered: a higher level
// can do everything a lower one can.
type Permission string

const (
	// PermissionNone can authenticate but not read or operate sockets.
	PermissionNone Permission = "NONE"

	// PermissionUser can list sockets and switch them.
	PermissionUser Permission = "USER"

	// PermissionAdmin can also create and delete sockets, read the audit
	// trail and manage users.
	PermissionAdmin Permission = "ADMIN"
)

var permissionLevels = map[Permission]int{
	PermissionNone:  0,
	PermissionUser:  1,
	PermissionAdmin: 2,
}

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	_, ok := permissionLevels[p]
	return ok
}

// Allows reports whether p meets the required level.
// Unknown permissions allow nothing.
func (p Permission) Allows(required Permission) bool {
	have, ok := permissionLevels[p]
	if !ok {
		return false
	}
	need, ok := permissionLevels[required]
	return ok && have >= need
}
