// File: internal/probe/backend.go
// Brief: Single-shot readiness check contract and condition-type registry.

// Package probe owns the readiness polling policy: a backend answers one
// cheap, side-effect-free "is it ready yet" question, and the poller layers
// retry, backoff, and timeout semantics on top. Concrete backends live in
// internal/probes, keeping this package free of platform dependencies.
package probe

import (
	"context"
	"sort"

	"github.com/example/readyctl/internal/depgraph"
)

// compile-time check that BackendFunc satisfies Backend.
var _ Backend = BackendFunc(nil)

// Backend performs one non-blocking readiness check for a node. It must be
// safe to call repeatedly; the poller decides when and how often.
type Backend interface {
	Check(ctx context.Context, node *depgraph.Node) (ready bool, detail string, err error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, node *depgraph.Node) (bool, string, error)

func (f BackendFunc) Check(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	return f(ctx, node)
}

// Registry maps condition types to backends. It is an explicit object passed
// into the scheduler rather than package-level state, so tests can wire fakes
// without touching globals.
type Registry struct {
	backends map[depgraph.ConditionType]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: map[depgraph.ConditionType]Backend{}}
}

// Register binds a backend to a condition type, replacing any previous
// binding. Registration happens during construction, before any execution.
func (r *Registry) Register(t depgraph.ConditionType, b Backend) {
	r.backends[t] = b
}

// Lookup resolves the backend for a condition type.
func (r *Registry) Lookup(t depgraph.ConditionType) (Backend, error) {
	b, ok := r.backends[t]
	if !ok {
		return nil, &UnsupportedConditionError{Type: t}
	}
	return b, nil
}

// ValidateGraph checks every node's condition type has a registered backend,
// so an unsupported condition aborts before the plan partially runs.
func (r *Registry) ValidateGraph(g *depgraph.Graph) error {
	for _, n := range g.Nodes() {
		if _, err := r.Lookup(n.Spec.Condition.Type); err != nil {
			return err
		}
	}
	return nil
}

// Types returns the registered condition types, sorted.
func (r *Registry) Types() []depgraph.ConditionType {
	out := make([]depgraph.ConditionType, 0, len(r.backends))
	for t := range r.backends {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
