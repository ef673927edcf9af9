package auth

// Permission represents a named capability of the admin API.
type Permission string

// Permission constants.
const (
	PermBridgeRead    Permission = "bridge:read"
	PermBridgeRefresh Permission = "bridge:refresh"
	PermDeviceRead    Permission = "device:read"
	PermDeviceRemove  Permission = "device:remove"
	PermDiscoveryScan Permission = "discovery:scan"
	PermAuditRead     Permission = "audit:read"
)

var readPermissions = []Permission{
	PermBridgeRead,
	PermDeviceRead,
	PermAuditRead,
}

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: readPermissions,
	RoleOperator: append(append([]Permission{}, readPermissions...),
		PermBridgeRefresh,
		PermDiscoveryScan,
	),
	RoleAdmin: append(append([]Permission{}, readPermissions...),
		PermBridgeRefresh,
		PermDiscoveryScan,
		PermDeviceRemove,
	),
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
