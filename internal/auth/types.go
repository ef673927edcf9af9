package auth

import "errors"

// Role is an authorisation tier.
type Role string

const (
	// RoleViewer can read bridge status, devices, history and the audit log.
	RoleViewer Role = "viewer"

	// RoleOperator can also force refreshes and run discovery scans.
	RoleOperator Role = "operator"

	// RoleAdmin can also remove devices.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// Auth errors.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenMissing = errors.New("auth: bearer token required")
	ErrForbidden    = errors.New("auth: insufficient permissions")
	ErrWeakSecret   = errors.New("auth: signing secret too short")
)
