package ai

import (
	"go.uber.org/zap"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
)

// Registry indexes Planners by domain ID.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	planners map[string]*Planner
	caller   ScriptCaller
	logger   *zap.Logger
}

// NewRegistry returns an empty Registry whose planners share caller.
func NewRegistry(caller ScriptCaller, logger *zap.Logger) *Registry {
	return &Registry{planners: make(map[string]*Planner), caller: caller, logger: logger}
}

// Register creates and stores a Planner for domain.
//
// Precondition: domain must not be nil.
// Postcondition: returns an invalid_input error on domain ID collision.
func (r *Registry) Register(domain *Domain) error {
	if _, exists := r.planners[domain.ID]; exists {
		return rpgerr.InvalidInputf("ai: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, r.caller, r.logger)
	return nil
}

// RegisterAll registers every domain, stopping at the first collision.
func (r *Registry) RegisterAll(domains []*Domain) error {
	for _, d := range domains {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// Lookup is PlannerFor with a not_found error.
func (r *Registry) Lookup(domainID string) (*Planner, error) {
	p, ok := r.planners[domainID]
	if !ok {
		return nil, rpgerr.NotFoundf("ai: no tactics domain %q", domainID)
	}
	return p, nil
}
