// internal/plans/plans.go
package plans

import (
	"errors"
	"fmt"

	"studybuddy-payments/internal/common/config"
)

// PlanID identifies a purchasable subscription plan.
type PlanID string

const (
	Pro       PlanID = "pro"
	ProYearly PlanID = "pro_yearly"
)

var (
	ErrUnknownPlan  = errors.New("UNKNOWN_PLAN")
	ErrInvalidPlans = errors.New("INVALID_PLAN_TABLE")
)

// Plan is a server-side price. Amounts are in the currency's minor unit (kobo).
type Plan struct {
	ID               PlanID
	AmountMinorUnits int64
	DisplayName      string
}

// Catalog is the compiled plan table.
func Catalog() []Plan {
	return []Plan{
		{ID: Pro, AmountMinorUnits: 150000, DisplayName: "Pro"},
		{ID: ProYearly, AmountMinorUnits: 1500000, DisplayName: "Pro (Yearly)"},
	}
}

// Registry is an immutable plan table shared by both payment endpoints.
type Registry struct {
	plans []Plan
	byID  map[PlanID]int
	defID PlanID
}

func NewRegistry(defaultID PlanID, plans ...Plan) (*Registry, error) {
	r := &Registry{
		plans: make([]Plan, 0, len(plans)),
		byID:  make(map[PlanID]int, len(plans)),
		defID: defaultID,
	}
	for _, p := range plans {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: empty plan id", ErrInvalidPlans)
		}
		if p.AmountMinorUnits <= 0 {
			return nil, fmt.Errorf("%w: plan %q has non-positive amount %d", ErrInvalidPlans, p.ID, p.AmountMinorUnits)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan %q", ErrInvalidPlans, p.ID)
		}
		r.byID[p.ID] = len(r.plans)
		r.plans = append(r.plans, p)
	}
	if _, ok := r.byID[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default plan %q not in table", ErrInvalidPlans, defaultID)
	}
	return r, nil
}

// MustDefaultRegistry builds the registry from the compiled catalog.
func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(Pro, Catalog()...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromConfig builds the registry from plans.catalog, falling back to the
// compiled catalog when none is configured.
func FromConfig(cfg config.PlansConfig) (*Registry, error) {
	table := Catalog()
	if len(cfg.Catalog) > 0 {
		table = make([]Plan, 0, len(cfg.Catalog))
		for _, e := range cfg.Catalog {
			table = append(table, Plan{ID: PlanID(e.ID), AmountMinorUnits: e.Amount, DisplayName: e.DisplayName})
		}
	}
	defaultID := PlanID(cfg.Default)
	if defaultID == "" {
		defaultID = Pro
	}
	return NewRegistry(defaultID, table...)
}

func (r *Registry) Lookup(id string) (Plan, error) {
	i, ok := r.byID[PlanID(id)]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	return r.plans[i], nil
}

// Resolve treats an empty id as a request for the default plan.
func (r *Registry) Resolve(id string) (Plan, error) {
	if id == "" {
		return r.Default(), nil
	}
	return r.Lookup(id)
}

// MatchAmount returns the first plan, in registration order, priced at exactly amount.
func (r *Registry) MatchAmount(amount int64) (Plan, bool) {
	for _, p := range r.plans {
		if p.AmountMinorUnits == amount {
			return p, true
		}
	}
	return Plan{}, false
}

func (r *Registry) Default() Plan {
	return r.plans[r.byID[r.defID]]
}

func (r *Registry) Plans() []Plan {
	out := make([]Plan, len(r.plans))
	copy(out, r.plans)
	return out
}
