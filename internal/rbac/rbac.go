// Package rbac maps workspace roles to content permissions and
// administrative capabilities. The tables are closed-form: roles never
// transition on their own, they only change through explicit member updates.
package rbac

type Role string
type Permission string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

const (
	PermEdit    Permission = "can_edit"
	PermView    Permission = "can_view"
	PermComment Permission = "can_comment"
)

// Capabilities are the administrative actions a role may perform. They are
// not strictly nested: a member may invite but not manage members.
type Capabilities struct {
	CanInvite          bool
	CanManageMembers   bool
	CanDeleteWorkspace bool
	CanEditSettings    bool
}

// PermissionCheck is the resolved access of one user in one workspace. The
// zero value is no access at all.
type PermissionCheck struct {
	CanEdit          bool
	CanView          bool
	CanComment       bool
	CanInvite        bool
	CanManageMembers bool
	CanDelete        bool
	CanEditSettings  bool
}

var rolePermissions = map[Role][]Permission{
	RoleOwner:  {PermEdit, PermView, PermComment},
	RoleAdmin:  {PermEdit, PermView, PermComment},
	RoleMember: {PermEdit, PermView, PermComment},
	RoleGuest:  {PermView, PermComment},
}

var roleCapabilities = map[Role]Capabilities{
	RoleOwner:  {CanInvite: true, CanManageMembers: true, CanDeleteWorkspace: true, CanEditSettings: true},
	RoleAdmin:  {CanInvite: true, CanManageMembers: true, CanDeleteWorkspace: false, CanEditSettings: true},
	RoleMember: {CanInvite: true, CanManageMembers: false, CanDeleteWorkspace: false, CanEditSettings: false},
	RoleGuest:  {CanInvite: false, CanManageMembers: false, CanDeleteWorkspace: false, CanEditSettings: false},
}

// DefaultPermissions returns a copy of the default permission set for a role.
func DefaultPermissions(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

func CapabilitiesFor(role Role) Capabilities {
	return roleCapabilities[role]
}

// ForRole resolves a check from role defaults alone. Used when the caller
// only knows the current user's role (workspace fetched user-scoped).
func ForRole(role Role) PermissionCheck {
	return ForMember(role, rolePermissions[role])
}

// ForMember resolves a check from a member's role and explicit permission
// set. Explicit permissions win over role defaults for content access.
func ForMember(role Role, perms []Permission) PermissionCheck {
	caps := roleCapabilities[role]
	check := PermissionCheck{
		CanInvite:        caps.CanInvite,
		CanManageMembers: caps.CanManageMembers,
		CanDelete:        caps.CanDeleteWorkspace,
		CanEditSettings:  caps.CanEditSettings,
	}
	for _, p := range perms {
		switch p {
		case PermEdit:
			check.CanEdit = true
		case PermView:
			check.CanView = true
		case PermComment:
			check.CanComment = true
		}
	}
	return check
}

func ValidRole(role string) bool {
	switch Role(role) {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return true
	default:
		return false
	}
}

// Normalize maps unknown role strings to the least privileged role.
func Normalize(role string) Role {
	if ValidRole(role) {
		return Role(role)
	}
	return RoleGuest
}

func ValidPermission(perm string) bool {
	switch Permission(perm) {
	case PermEdit, PermView, PermComment:
		return true
	default:
		return false
	}
}
