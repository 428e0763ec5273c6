// File: internal/scheduler/result.go
// Brief: Per-node and aggregate execution results.

package scheduler

import (
	"time"

	"github.com/example/readyctl/internal/depgraph"
)

// NodeResult is the final record for one node: how it ended, how hard the
// poller worked, and the last probe error if any.
type NodeResult struct {
	ID       depgraph.NodeID         `json:"id"`
	State    depgraph.ExecutionState `json:"state"`
	Layer    int                     `json:"layer"`
	Attempts int                     `json:"attempts"`
	// OuterRetries counts restarts of the full polling budget; it is nonzero
	// only for nodes with onFailure=retry-node.
	OuterRetries int           `json:"outerRetries,omitempty"`
	Elapsed      time.Duration `json:"elapsedNS"`
	Detail       string        `json:"detail,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// PlanResult aggregates one validate-then-execute run. It is always complete:
// every declared node appears exactly once, terminal, even when the plan
// failed or was cancelled partway.
type PlanResult struct {
	Success bool                `json:"success"`
	Results []NodeResult        `json:"results"`
	Layers  [][]depgraph.NodeID `json:"layers"`
	Elapsed time.Duration       `json:"elapsedNS"`
}

// Result looks up a node's result by identity.
func (r *PlanResult) Result(id depgraph.NodeID) (NodeResult, bool) {
	for _, nr := range r.Results {
		if nr.ID == id {
			return nr, true
		}
	}
	return NodeResult{}, false
}

// Counts tallies results per terminal state.
func (r *PlanResult) Counts() map[depgraph.ExecutionState]int {
	out := map[depgraph.ExecutionState]int{}
	for _, nr := range r.Results {
		out[nr.State]++
	}
	return out
}
