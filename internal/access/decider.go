package access

// Decider answers access questions for one identity from an immutable
// snapshot of its grants. A nil Decider denies everything.
type Decider struct {
	grants Grants
	agg    *Aggregator
}

// NewDecider snapshots grants. The slices are copied so later mutation of the
// source does not leak into decisions.
func NewDecider(g Grants, agg *Aggregator) *Decider {
	if agg == nil {
		agg = DefaultAggregator(nil)
	}
	snap := Grants{
		PermissionsLoaded:      g.PermissionsLoaded,
		Permissions:            append([]string(nil), g.Permissions...),
		Components:             append([]string(nil), g.Components...),
		SubscriptionComponents: append([]string(nil), g.SubscriptionComponents...),
	}
	if g.Identity != nil {
		id := *g.Identity
		snap.Identity = &id
	}
	return &Decider{grants: snap, agg: agg}
}

// Identity returns a copy of the identity or nil when signed out.
func (d *Decider) Identity() *Identity {
	if d == nil || d.grants.Identity == nil {
		return nil
	}
	id := *d.grants.Identity
	return &id
}

// HasPermission reports whether the identity holds permission.
func (d *Decider) HasPermission(permission string) bool {
	if d == nil {
		return false
	}
	ok, _ := d.agg.Evaluate(&d.grants, permission)
	return ok
}

// HasAnyPermission reports whether at least one permission is held.
func (d *Decider) HasAnyPermission(permissions ...string) bool {
	if d == nil || d.grants.Identity == nil {
		return false
	}
	for _, p := range permissions {
		if d.HasPermission(p) {
			return true
		}
	}
	return false
}

// IsRole compares the role name case-insensitively, preferring the free-text
// override when one is stored.
func (d *Decider) IsRole(role string) bool {
	if d == nil || d.grants.Identity == nil {
		return false
	}
	id := d.grants.Identity
	name := id.RoleName
	if id.RoleOverride != "" {
		name = id.RoleOverride
	}
	return name != "" && equalFold(name, role)
}

// HasAccess reports whether the identity's role may use component.
func (d *Decider) HasAccess(component string) bool {
	if d == nil || d.grants.Identity == nil {
		return false
	}
	if d.grants.Identity.HasFullAccess {
		return true
	}
	return containsFold(d.grants.Components, component)
}

// HasSubscriptionAccess reports whether the tenant's active plan includes
// component.
func (d *Decider) HasSubscriptionAccess(component string) bool {
	if d == nil {
		return false
	}
	return containsFold(d.grants.SubscriptionComponents, component)
}

// Allows is the two-key lock: the role must hold permission and the tenant
// must be licensed for component.
func (d *Decider) Allows(permission, component string) bool {
	return d.HasPermission(permission) && d.HasSubscriptionAccess(component)
}

// Summary describes the snapshot for clients that render their own UI.
type Summary struct {
	Identity               *Identity `json:"identity"`
	PermissionsLoaded      bool      `json:"permissions_loaded"`
	Permissions            []string  `json:"permissions"`
	Components             []string  `json:"components"`
	SubscriptionComponents []string  `json:"subscription_components"`
}

// Summary returns the effective permissions after tier evaluation.
func (d *Decider) Summary(candidates []string) Summary {
	out := Summary{Permissions: []string{}, Components: []string{}, SubscriptionComponents: []string{}}
	if d == nil {
		return out
	}
	out.Identity = d.Identity()
	out.PermissionsLoaded = d.grants.PermissionsLoaded
	out.Components = append(out.Components, d.grants.Components...)
	out.SubscriptionComponents = append(out.SubscriptionComponents, d.grants.SubscriptionComponents...)
	for _, p := range candidates {
		if d.HasPermission(p) {
			out.Permissions = append(out.Permissions, p)
		}
	}
	return out
}
