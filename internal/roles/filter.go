package roles

import (
	"strings"

	"github.com/innsuite/innsuite/internal/access"
)

// VisibleTo hides roles whose name mentions "admin" from viewers that are not
// admins themselves. Display only; mutations re-check on their own.
func VisibleTo(roles []Role, viewer *access.Decider) []Role {
	if IsAdmin(viewer) {
		return roles
	}
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		if strings.Contains(strings.ToLower(role.Name), "admin") {
			continue
		}
		out = append(out, role)
	}
	return out
}

// IsAdmin reports whether viewer holds full access or an admin role.
func IsAdmin(viewer *access.Decider) bool {
	identity := viewer.Identity()
	if identity == nil {
		return false
	}
	return identity.HasFullAccess || strings.Contains(strings.ToLower(identity.RoleName), "admin")
}
