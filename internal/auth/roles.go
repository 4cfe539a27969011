package auth

// Role represents a user role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
	RoleDriver  Role = "driver"
	RoleFamily  Role = "family"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleCompany, RoleDriver, RoleFamily:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAllowed returns true when role is in the allowed set. Admin is always
// allowed.
func RoleAllowed(role Role, allowed []Role) bool {
	if role == RoleAdmin {
		return true
	}
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
