// File: internal/scheduler/scheduler.go
// Brief: Layer-ordered plan execution with per-node failure dispatch.

// Package scheduler walks validated execution layers, drives the readiness
// poller for every node, and aggregates a PlanResult. Layer k+1 never starts
// before every node in layer k is terminal; within a layer nodes run
// concurrently unless the caller asks for sequential execution.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/notify"
	"github.com/example/readyctl/internal/probe"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// ConcurrencyMode selects how nodes within one layer are dispatched.
type ConcurrencyMode string

const (
	// Parallel runs a whole layer at once; the layer's own width is the only
	// bound, since layered nodes are independent by construction.
	Parallel ConcurrencyMode = "parallel"
	// Sequential runs one node at a time in deterministic order. Useful when
	// probes share a rate-limited external resource.
	Sequential ConcurrencyMode = "sequential"
)

// ParseConcurrencyMode validates a mode string; empty means parallel.
func ParseConcurrencyMode(s string) (ConcurrencyMode, error) {
	switch ConcurrencyMode(s) {
	case "", Parallel:
		return Parallel, nil
	case Sequential:
		return Sequential, nil
	}
	return "", fmt.Errorf("unknown concurrency mode %q", s)
}

// Options tune one Execute call.
type Options struct {
	Mode ConcurrencyMode
	// PlanTimeout bounds the whole run; zero means no plan-level deadline.
	// Per-node timeouts still apply inside it.
	PlanTimeout time.Duration
}

// PlanCancelledError is returned by Execute when the plan-level deadline or
// the caller's context fired before every node resolved.
type PlanCancelledError struct {
	Err error
}

func (e *PlanCancelledError) Error() string {
	return fmt.Sprintf("plan cancelled: %v", e.Err)
}

func (e *PlanCancelledError) Unwrap() error { return e.Err }

// Scheduler executes validated graphs. All collaborators are explicit so
// tests stay hermetic: no package-level registries or clocks.
type Scheduler struct {
	registry *probe.Registry
	poller   *probe.Poller
	clock    probe.Clock
	log      logr.Logger
	sink     notify.Sink
}

// New wires a scheduler. A nil sink disables notifications.
func New(registry *probe.Registry, clock probe.Clock, log logr.Logger, sink notify.Sink) *Scheduler {
	if clock == nil {
		clock = probe.RealClock()
	}
	if sink == nil {
		sink = notify.Nop()
	}
	return &Scheduler{
		registry: registry,
		poller:   probe.NewPoller(clock, log),
		clock:    clock,
		log:      log,
		sink:     sink,
	}
}

// Execute runs the plan over the given layers (as produced by
// depgraph.Validate). The returned PlanResult is complete even on failure or
// cancellation; the error is non-nil only for build-time problems (an
// unsupported condition type) or when the plan as a whole was cancelled.
func (s *Scheduler) Execute(ctx context.Context, g *depgraph.Graph, layers [][]depgraph.NodeID, opts Options) (*PlanResult, error) {
	if err := s.registry.ValidateGraph(g); err != nil {
		return nil, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = Parallel
	}

	if opts.PlanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.PlanTimeout)
		defer cancel()
	}

	run := &planRun{
		sched:   s,
		graph:   g,
		results: make(map[depgraph.NodeID]NodeResult, g.Len()),
		success: true,
	}
	start := s.clock.Now()

	for li, layer := range layers {
		if mode == Sequential {
			for _, id := range layer {
				run.runNode(ctx, li, id)
			}
			continue
		}
		var eg errgroup.Group
		for _, id := range layer {
			eg.Go(func() error {
				run.runNode(ctx, li, id)
				return nil
			})
		}
		// Nodes never return errors here; failures land in the results and
		// are dispatched per failureAction.
		_ = eg.Wait()
	}

	run.wg.Wait() // drain notification goroutines

	res := &PlanResult{
		Success: run.success,
		Layers:  layers,
		Elapsed: s.clock.Now().Sub(start),
	}
	for li, layer := range layers {
		for _, id := range layer {
			nr, ok := run.results[id]
			if !ok {
				// Defensive: a node missing from results means the layer loop
				// never reached it, which the invariants above rule out.
				nr = NodeResult{ID: id, State: depgraph.StateCancelled, Layer: li}
			}
			res.Results = append(res.Results, nr)
		}
	}
	if err := ctx.Err(); err != nil {
		res.Success = false
		return res, &PlanCancelledError{Err: err}
	}
	return res, nil
}

// planRun is the mutable state of one Execute call. Node states are written
// exactly once, by the goroutine that owns the node; only the results map is
// shared and it is mutex-guarded.
type planRun struct {
	sched *Scheduler
	graph *depgraph.Graph

	mu      sync.Mutex
	results map[depgraph.NodeID]NodeResult
	success bool

	wg sync.WaitGroup
}

func (r *planRun) record(nr NodeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[nr.ID] = nr
}

func (r *planRun) markFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = false
}

// satisfied reports whether a terminal predecessor unblocks its dependents:
// Ready always does, and a failed predecessor does when its failureAction is
// continue.
func satisfied(n *depgraph.Node) bool {
	switch n.State {
	case depgraph.StateReady:
		return true
	case depgraph.StateFailed, depgraph.StateTimedOut:
		return n.Spec.OnFailure == depgraph.ContinuePlan
	}
	return false
}

// runNode takes one node to a terminal state and records its result. It is
// the only writer of the node's State.
func (r *planRun) runNode(ctx context.Context, layer int, id depgraph.NodeID) {
	node, ok := r.graph.Node(id)
	if !ok {
		return
	}
	log := r.sched.log.WithValues("node", id.String(), "layer", layer)

	if err := ctx.Err(); err != nil {
		node.State = depgraph.StateCancelled
		r.markFailure()
		r.record(NodeResult{ID: id, State: depgraph.StateCancelled, Layer: layer, Error: err.Error()})
		return
	}

	// Predecessors are terminal by the layer invariant; check dispositions.
	for _, depID := range r.graph.DependenciesOf(id) {
		dep, ok := r.graph.Node(depID)
		if !ok {
			continue
		}
		if !satisfied(dep) {
			node.State = depgraph.StateSkipped
			detail := fmt.Sprintf("skipped: dependency %s ended %s", depID, dep.State)
			log.Info("skipping node", "dependency", depID.String(), "dependencyState", string(dep.State))
			r.record(NodeResult{ID: id, State: depgraph.StateSkipped, Layer: layer, Detail: detail})
			return
		}
	}

	backend, err := r.sched.registry.Lookup(node.Spec.Condition.Type)
	if err != nil {
		// Ruled out by ValidateGraph before execution began.
		node.State = depgraph.StateFailed
		r.markFailure()
		r.record(NodeResult{ID: id, State: depgraph.StateFailed, Layer: layer, Error: err.Error()})
		return
	}

	node.State = depgraph.StateWaiting
	started := r.sched.clock.Now()
	attempts := 0
	outer := 0

	var out probe.Outcome
	for {
		out = r.sched.poller.Poll(ctx, backend, node)
		attempts += out.Attempts
		if out.State == depgraph.StateReady || out.State == depgraph.StateCancelled {
			break
		}
		if node.Spec.OnFailure != depgraph.RetryNode || outer >= node.Spec.OuterRetryLimit {
			break
		}
		outer++
		log.Info("restarting polling budget", "outerRetry", outer, "of", node.Spec.OuterRetryLimit, "lastState", string(out.State))
	}

	node.State = out.State
	nr := NodeResult{
		ID:           id,
		State:        out.State,
		Layer:        layer,
		Attempts:     attempts,
		OuterRetries: outer,
		Elapsed:      r.sched.clock.Now().Sub(started),
		Detail:       out.Detail,
	}
	if out.Err != nil {
		nr.Error = out.Err.Error()
	}
	r.record(nr)

	switch out.State {
	case depgraph.StateReady:
		log.Info("node ready", "attempts", attempts, "elapsed", nr.Elapsed.String())
		if node.Spec.OnSuccess == depgraph.SuccessNotify {
			r.dispatchNotify(nr)
		}
	case depgraph.StateCancelled:
		r.markFailure()
	default: // Failed or TimedOut
		log.Info("node did not become ready", "state", string(out.State), "attempts", attempts, "error", nr.Error)
		if node.Spec.OnFailure != depgraph.ContinuePlan {
			// fail-plan, and retry-node once its outer budget is spent: the
			// plan did not converge. Dependents are skipped via satisfied().
			r.markFailure()
		}
	}
}

// dispatchNotify fires the sink without blocking the layer. Sink errors are
// logged and dropped; the run waits for in-flight notifications before
// returning so none leak past Execute.
func (r *planRun) dispatchNotify(nr NodeResult) {
	ev := notify.Event{
		Node:     nr.ID.String(),
		Outcome:  string(nr.State),
		Attempts: nr.Attempts,
		Elapsed:  nr.Elapsed,
		At:       r.sched.clock.Now(),
		Detail:   nr.Detail,
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sched.sink.Notify(context.Background(), ev); err != nil {
			r.sched.log.Error(err, "notification sink failed", "node", ev.Node)
		}
	}()
}
