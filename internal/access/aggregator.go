package access

import "strings"

// DecisionRecorder observes permission decisions, typically for metrics.
type DecisionRecorder interface {
	RecordDecision(tier string, allowed bool)
}

// Aggregator evaluates permission tiers in order and stops at the first
// conclusive verdict. Nothing conclusive means deny.
type Aggregator struct {
	providers []PermissionProvider
	recorder  DecisionRecorder
}

// NewAggregator builds an Aggregator over the given tiers.
func NewAggregator(recorder DecisionRecorder, providers ...PermissionProvider) *Aggregator {
	return &Aggregator{providers: providers, recorder: recorder}
}

// DefaultAggregator wires the standard tier order: full access, dynamic,
// component fallback, hardcoded role table.
func DefaultAggregator(recorder DecisionRecorder) *Aggregator {
	return NewAggregator(recorder,
		FullAccessProvider{},
		DynamicProvider{},
		ComponentProvider{},
		RoleTableProvider{},
	)
}

// Evaluate returns the decision for permission and the tier that made it.
func (a *Aggregator) Evaluate(g *Grants, permission string) (bool, string) {
	permission = strings.TrimSpace(permission)
	if g == nil || g.Identity == nil || permission == "" {
		a.record("none", false)
		return false, "none"
	}
	for _, p := range a.providers {
		switch p.Decide(g, permission) {
		case Allow:
			a.record(p.Name(), true)
			return true, p.Name()
		case Deny:
			a.record(p.Name(), false)
			return false, p.Name()
		}
	}
	a.record("default", false)
	return false, "default"
}

func (a *Aggregator) record(tier string, allowed bool) {
	if a.recorder != nil {
		a.recorder.RecordDecision(tier, allowed)
	}
}
