package client

import (
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// Console routes guards redirect to
const (
	LoginRoute     = "/login"
	DashboardRoute = "/dashboard"
)

// Decision is the outcome of a route guard. A denied decision names where to
// go instead and, for role guards, the notice to show.
type Decision struct {
	Allowed  bool
	Redirect string
	Notice   string
}

var allow = Decision{Allowed: true}

// AuthGuard only needs a token; it redirects to the login page silently
func AuthGuard(s *Session) Decision {
	if s.IsLoggedIn() {
		return allow
	}
	return Decision{Redirect: LoginRoute}
}

// AdminGuard lets super_admin and servidor_administrativo through
func AdminGuard(s *Session) Decision {
	return roleGuard(s, policy.IsAdmin, "Acesso negado. Você não tem permissão para esta área.")
}

// SuperAdminGuard lets only super_admin through, compared case-insensitively
func SuperAdminGuard(s *Session) Decision {
	return roleGuard(s, policy.IsSuperAdmin, "Acesso negado. Apenas Super Administradores.")
}

// EditingAccessGuard lets the roles that create and edit occurrences through
func EditingAccessGuard(s *Session) Decision {
	return roleGuard(s, policy.CanEdit, "Acesso negado. Permissão para edição necessária.")
}

func roleGuard(s *Session, allowed func(string) bool, notice string) Decision {
	if allowed(s.Role()) {
		return allow
	}
	return Decision{Redirect: DashboardRoute, Notice: notice}
}

// Capabilities returns what the logged in role may do, for gating actions on
// screen. The API checks every capability again.
func (s *Session) Capabilities() policy.Capabilities {
	return policy.CapabilitiesFor(s.Role())
}

// CanExtendDeadline reports whether the logged in user may extend the
// deadline of o
func (s *Session) CanExtendDeadline(o models.GeneralOccurrence) bool {
	c, err := s.Claims()
	if err != nil {
		return false
	}
	return policy.CanExtendDeadline(c.Role, c.Subject, o.ResponsibleExpertID())
}
