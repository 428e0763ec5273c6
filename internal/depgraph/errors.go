// File: internal/depgraph/errors.go
// Brief: Build-time graph error types.

package depgraph

import (
	"fmt"
	"strings"
)

// DuplicateNodeError reports a second AddNode with an identity already in the
// graph.
type DuplicateNodeError struct {
	ID NodeID
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node %s", e.ID)
}

// UnknownNodeError reports an edge endpoint that was never added as a node.
type UnknownNodeError struct {
	ID NodeID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("edge references unknown node %s", e.ID)
}

// CycleDetectedError carries the literal cycle path for diagnostics. The path
// is ordered along dependency direction and the first node is repeated last
// when rendered.
type CycleDetectedError struct {
	Path []NodeID
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, 0, len(e.Path)+1)
	for _, id := range e.Path {
		parts = append(parts, id.String())
	}
	if len(parts) > 0 {
		parts = append(parts, parts[0])
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

// InvalidSpecError wraps a per-node DependencySpec validation failure with
// the offending identity.
type InvalidSpecError struct {
	ID  NodeID
	Err error
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("node %s: invalid dependency spec: %v", e.ID, e.Err)
}

func (e *InvalidSpecError) Unwrap() error { return e.Err }
