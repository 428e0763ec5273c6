// File: internal/probe/errors.go
// Brief: Run-time probe error types, scoped to a single node.

package probe

import (
	"fmt"
	"time"

	"github.com/example/readyctl/internal/depgraph"
)

// UnsupportedConditionError reports a condition type with no registered
// backend. It is a build-time error: the plan never starts executing.
type UnsupportedConditionError struct {
	Type depgraph.ConditionType
}

func (e *UnsupportedConditionError) Error() string {
	return fmt.Sprintf("no probe backend registered for condition type %q", e.Type)
}

// ProbeExecutionError wraps a backend failure, as opposed to the backend
// cleanly answering ready=false.
type ProbeExecutionError struct {
	ID  depgraph.NodeID
	Err error
}

func (e *ProbeExecutionError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.ID, e.Err)
}

func (e *ProbeExecutionError) Unwrap() error { return e.Err }

// MaxRetriesExceededError reports a node that exhausted its polling attempts
// without becoming ready.
type MaxRetriesExceededError struct {
	ID       depgraph.NodeID
	Attempts int
	Last     error
}

func (e *MaxRetriesExceededError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s not ready after %d attempts, last error: %v", e.ID, e.Attempts, e.Last)
	}
	return fmt.Sprintf("%s not ready after %d attempts", e.ID, e.Attempts)
}

func (e *MaxRetriesExceededError) Unwrap() error { return e.Last }

// ProbeTimeoutError reports a polling loop that ran out of wall-clock budget
// before the node became ready, regardless of how many retries remained.
type ProbeTimeoutError struct {
	ID       depgraph.NodeID
	Timeout  time.Duration
	Attempts int
	Last     error
}

func (e *ProbeTimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s not ready within %s (%d attempts), last error: %v", e.ID, e.Timeout, e.Attempts, e.Last)
	}
	return fmt.Sprintf("%s not ready within %s (%d attempts)", e.ID, e.Timeout, e.Attempts)
}

func (e *ProbeTimeoutError) Unwrap() error { return e.Last }
