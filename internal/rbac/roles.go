package rbac

// Role names carried in access tokens. Keep these stable.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	// RoleSupport is the operator role; it may act on any customer it is
	// issued for but is never granted implicitly.
	RoleSupport = "support"
)

// Managers may change account settings.
var Managers = []string{RoleOwner, RoleAdmin}
