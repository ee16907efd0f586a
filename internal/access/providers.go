package access

import "slices"

// Verdict is the outcome of a single permission tier.
type Verdict int

const (
	// Inconclusive defers the decision to the next tier.
	Inconclusive Verdict = iota
	// Allow grants the permission.
	Allow
	// Deny refuses the permission.
	Deny
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "inconclusive"
	}
}

func verdictOf(ok bool) Verdict {
	if ok {
		return Allow
	}
	return Deny
}

// Grants is the authorization data loaded for one identity. Any field may be
// missing while fetches are still in flight or after they failed.
type Grants struct {
	Identity               *Identity `json:"identity"`
	Permissions            []string  `json:"permissions"`
	PermissionsLoaded      bool      `json:"permissions_loaded"`
	Components             []string  `json:"components"`
	SubscriptionComponents []string  `json:"subscription_components"`
}

// PermissionProvider is one tier of permission resolution.
type PermissionProvider interface {
	Name() string
	Decide(g *Grants, permission string) Verdict
}

// FullAccessProvider allows everything for roles flagged with full access.
type FullAccessProvider struct{}

func (FullAccessProvider) Name() string { return "full_access" }

func (FullAccessProvider) Decide(g *Grants, _ string) Verdict {
	if g.Identity != nil && g.Identity.HasFullAccess {
		return Allow
	}
	return Inconclusive
}

// DynamicProvider trusts the per-user permission set once it has loaded and is
// non-empty. It shadows every later tier.
type DynamicProvider struct{}

func (DynamicProvider) Name() string { return "dynamic" }

func (DynamicProvider) Decide(g *Grants, permission string) Verdict {
	if !g.PermissionsLoaded || len(g.Permissions) == 0 {
		return Inconclusive
	}
	return verdictOf(slices.Contains(g.Permissions, permission))
}

// ComponentProvider derives permissions from the identity's accessible
// components through the static component table.
type ComponentProvider struct {
	Lookup func(component string) []string
}

func (ComponentProvider) Name() string { return "component" }

func (p ComponentProvider) Decide(g *Grants, permission string) Verdict {
	if len(g.Components) == 0 {
		return Inconclusive
	}
	lookup := p.Lookup
	if lookup == nil {
		lookup = ComponentPermissions
	}
	for _, component := range g.Components {
		if slices.Contains(lookup(component), permission) {
			return Allow
		}
	}
	return Deny
}

// RoleTableProvider is the hardcoded last resort keyed by role name.
type RoleTableProvider struct {
	Lookup func(role string) ([]string, bool)
}

func (RoleTableProvider) Name() string { return "role_table" }

func (p RoleTableProvider) Decide(g *Grants, permission string) Verdict {
	if g.Identity == nil {
		return Inconclusive
	}
	lookup := p.Lookup
	if lookup == nil {
		lookup = RolePermissions
	}
	perms, ok := lookup(g.Identity.RoleName)
	if !ok {
		return Inconclusive
	}
	return verdictOf(slices.Contains(perms, permission))
}
