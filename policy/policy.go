// Package policy holds the role rules shared by the API middleware and the
// console client.
package policy

import "strings"

// Roles a user can hold
const (
	RoleSuperAdmin           = "super_admin"
	RoleAdministrativeStaff  = "servidor_administrativo"
	RoleOfficialExpert       = "perito_oficial"
	RoleDelegate             = "delegado"
	RoleInvestigatingOfficer = "oficial_investigador"
	RoleExternalUser         = "usuario_externo"
)

// AllRoles lists every known role in display order
var AllRoles = []string{
	RoleSuperAdmin,
	RoleAdministrativeStaff,
	RoleOfficialExpert,
	RoleDelegate,
	RoleInvestigatingOfficer,
	RoleExternalUser,
}

var (
	adminRoles   = []string{RoleSuperAdmin, RoleAdministrativeStaff}
	editingRoles = []string{RoleSuperAdmin, RoleAdministrativeStaff, RoleOfficialExpert}
)

// Capabilities is the set of actions a role may perform
type Capabilities struct {
	CanCreateOrEdit           bool
	CanDelete                 bool
	CanAccessAdminModules     bool
	CanApproveUsers           bool
	CanManageMasterData       bool
	CanAddMovement            bool
	CanChangeStatus           bool
	CanExtendAnyDeadline      bool
	CanDeleteAdditionalFields bool
	IsSuperAdmin              bool
}

// CapabilitiesFor returns the capability set of role. Unknown and empty roles
// get nothing.
func CapabilitiesFor(role string) Capabilities {
	admin := IsAdmin(role)
	editor := CanEdit(role)
	super := IsSuperAdmin(role)
	return Capabilities{
		CanCreateOrEdit:           editor,
		CanDelete:                 admin,
		CanAccessAdminModules:     admin,
		CanApproveUsers:           admin,
		CanManageMasterData:       admin,
		CanAddMovement:            editor,
		CanChangeStatus:           editor,
		CanExtendAnyDeadline:      admin,
		CanDeleteAdditionalFields: super,
		IsSuperAdmin:              super,
	}
}

// IsAdmin reports whether role may reach the administrative modules
func IsAdmin(role string) bool {
	return contains(adminRoles, role)
}

// CanEdit reports whether role may create or edit occurrences
func CanEdit(role string) bool {
	return contains(editingRoles, role)
}

// IsSuperAdmin compares case-insensitively, unlike the other checks.
func IsSuperAdmin(role string) bool {
	return strings.EqualFold(role, RoleSuperAdmin)
}

// IsKnownRole reports whether role is one of AllRoles
func IsKnownRole(role string) bool {
	return contains(AllRoles, role)
}

// ApprovableRoles are the roles that can be granted when approving a pending
// user. super_admin is never granted through approval.
func ApprovableRoles() []string {
	out := make([]string, 0, len(AllRoles)-1)
	for _, r := range AllRoles {
		if r != RoleSuperAdmin {
			out = append(out, r)
		}
	}
	return out
}

// IsApprovableRole reports whether role may be granted on approval
func IsApprovableRole(role string) bool {
	return role != RoleSuperAdmin && IsKnownRole(role)
}

// CanExtendDeadline decides whether the user identified by userID with the
// given role may extend the deadline of an occurrence whose responsible
// expert is responsibleExpertID (empty for pool cases).
func CanExtendDeadline(role, userID, responsibleExpertID string) bool {
	if IsAdmin(role) {
		return true
	}
	if role == RoleOfficialExpert {
		return userID != "" && responsibleExpertID == userID
	}
	return false
}

func contains(list []string, role string) bool {
	if role == "" {
		return false
	}
	for _, r := range list {
		if r == role {
			return true
		}
	}
	return false
}
