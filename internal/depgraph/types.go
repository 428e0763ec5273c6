// File: internal/depgraph/types.go
// Brief: Node identity, condition specs, and execution states.

// Package depgraph models a set of declared resources and their readiness
// dependencies as a directed acyclic graph. The graph is built once per run,
// validated once, and then handed to the scheduler; it is never mutated after
// validation except for per-node execution state, which the scheduler owns.
package depgraph

import (
	"fmt"
	"strings"
	"time"
)

// NodeID identifies a declared resource. The engine treats all three parts as
// opaque strings; probe backends give them meaning (e.g. a Kubernetes kind).
type NodeID struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

func (id NodeID) String() string {
	if id.Namespace == "" {
		return id.Kind + "/" + id.Name
	}
	return id.Kind + "/" + id.Namespace + "/" + id.Name
}

// ExecutionState tracks a node through the scheduler's state machine.
// Pending -> Waiting -> {Ready, Failed, TimedOut}; Skipped and Cancelled are
// terminal states assigned without the node ever being probed to completion.
type ExecutionState string

const (
	StatePending   ExecutionState = "Pending"
	StateWaiting   ExecutionState = "Waiting"
	StateReady     ExecutionState = "Ready"
	StateFailed    ExecutionState = "Failed"
	StateTimedOut  ExecutionState = "TimedOut"
	StateSkipped   ExecutionState = "Skipped"
	StateCancelled ExecutionState = "Cancelled"
)

// Terminal reports whether the state is final.
func (s ExecutionState) Terminal() bool {
	switch s {
	case StateReady, StateFailed, StateTimedOut, StateSkipped, StateCancelled:
		return true
	}
	return false
}

// ConditionType selects which readiness check a node waits on.
type ConditionType string

const (
	ConditionResourceExists  ConditionType = "resource-exists"
	ConditionStatusCondition ConditionType = "status-condition"
	ConditionReplicaCount    ConditionType = "replica-count"
	ConditionHealthEndpoint  ConditionType = "health-endpoint"
	ConditionExecCommand     ConditionType = "exec-command"
	ConditionNamespaceExists ConditionType = "namespace-exists"
	ConditionCustomResource  ConditionType = "custom-resource-condition"
)

// ParseConditionType validates a condition type string.
func ParseConditionType(s string) (ConditionType, error) {
	ct := ConditionType(strings.TrimSpace(s))
	switch ct {
	case ConditionResourceExists, ConditionStatusCondition, ConditionReplicaCount,
		ConditionHealthEndpoint, ConditionExecCommand, ConditionNamespaceExists,
		ConditionCustomResource:
		return ct, nil
	}
	return "", fmt.Errorf("unknown condition type %q", s)
}

// BackoffPolicy scales the retry interval between probe attempts.
type BackoffPolicy string

const (
	BackoffFixed       BackoffPolicy = "fixed"
	BackoffLinear      BackoffPolicy = "linear"
	BackoffExponential BackoffPolicy = "exponential"
)

// ParseBackoffPolicy validates a backoff policy string; empty means fixed.
func ParseBackoffPolicy(s string) (BackoffPolicy, error) {
	switch BackoffPolicy(strings.TrimSpace(s)) {
	case "", BackoffFixed:
		return BackoffFixed, nil
	case BackoffLinear:
		return BackoffLinear, nil
	case BackoffExponential:
		return BackoffExponential, nil
	}
	return "", fmt.Errorf("unknown backoff policy %q", s)
}

// FailureAction decides what happens when a node ends Failed or TimedOut.
type FailureAction string

const (
	// FailPlan marks the plan unsuccessful and skips not-yet-started dependents.
	FailPlan FailureAction = "fail-plan"
	// RetryNode restarts the node's full polling budget, bounded by
	// DependencySpec.OuterRetryLimit.
	RetryNode FailureAction = "retry-node"
	// ContinuePlan records the failure but lets dependents treat the node as
	// satisfied.
	ContinuePlan FailureAction = "continue"
)

// ParseFailureAction validates a failure action string; empty means fail-plan.
func ParseFailureAction(s string) (FailureAction, error) {
	switch FailureAction(strings.TrimSpace(s)) {
	case "", FailPlan:
		return FailPlan, nil
	case RetryNode:
		return RetryNode, nil
	case ContinuePlan:
		return ContinuePlan, nil
	}
	return "", fmt.Errorf("unknown failure action %q", s)
}

// SuccessAction decides what happens when a node reaches Ready.
type SuccessAction string

const (
	SuccessContinue SuccessAction = "continue"
	SuccessNotify   SuccessAction = "notify"
)

// ParseSuccessAction validates a success action string; empty means continue.
func ParseSuccessAction(s string) (SuccessAction, error) {
	switch SuccessAction(strings.TrimSpace(s)) {
	case "", SuccessContinue:
		return SuccessContinue, nil
	case SuccessNotify:
		return SuccessNotify, nil
	}
	return "", fmt.Errorf("unknown success action %q", s)
}

// ResourceExistsCondition is satisfied when the target object can be fetched.
type ResourceExistsCondition struct {
	APIVersion string `json:"apiVersion,omitempty"`
}

// StatusConditionCondition is satisfied when the target object carries a
// status condition of the given type with the expected status value.
type StatusConditionCondition struct {
	APIVersion     string `json:"apiVersion,omitempty"`
	ConditionType  string `json:"conditionType"`
	ExpectedStatus string `json:"expectedStatus,omitempty"` // defaults to "True"
}

// ReplicaCountCondition is satisfied when the workload reports at least
// Replicas ready replicas.
type ReplicaCountCondition struct {
	Replicas int32 `json:"replicas"`
}

// HealthEndpointCondition is satisfied when an HTTP request returns the
// expected status code.
type HealthEndpointCondition struct {
	URL            string            `json:"url"`
	Method         string            `json:"method,omitempty"` // defaults to GET
	Headers        map[string]string `json:"headers,omitempty"`
	ExpectedStatus int               `json:"expectedStatus,omitempty"` // defaults to 200
}

// ExecCommandCondition is satisfied when the command exits zero inside the
// target pod (the node's name/namespace identify the pod).
type ExecCommandCondition struct {
	Container string   `json:"container,omitempty"`
	Command   []string `json:"command"`
}

// NamespaceExistsCondition is satisfied when the node's namespace (or the
// node's name for cluster-scoped declarations) exists.
type NamespaceExistsCondition struct{}

// CustomResourceCondition matches a status condition on an arbitrary custom
// resource, resolved through the dynamic client.
type CustomResourceCondition struct {
	APIVersion     string `json:"apiVersion"`
	ConditionType  string `json:"conditionType"`
	ExpectedStatus string `json:"expectedStatus,omitempty"` // defaults to "True"
}

// Condition is a tagged union: exactly the variant matching Type must be set.
// Variants are validated when the node is added to the builder, so probe
// backends never see a malformed condition.
type Condition struct {
	Type ConditionType `json:"type"`

	ResourceExists  *ResourceExistsCondition  `json:"resourceExists,omitempty"`
	StatusCondition *StatusConditionCondition `json:"statusCondition,omitempty"`
	ReplicaCount    *ReplicaCountCondition    `json:"replicaCount,omitempty"`
	HealthEndpoint  *HealthEndpointCondition  `json:"healthEndpoint,omitempty"`
	ExecCommand     *ExecCommandCondition     `json:"execCommand,omitempty"`
	NamespaceExists *NamespaceExistsCondition `json:"namespaceExists,omitempty"`
	CustomResource  *CustomResourceCondition  `json:"customResource,omitempty"`
}

// Validate checks that exactly the variant selected by Type is populated and
// that its required parameters are present.
func (c Condition) Validate() error {
	set := 0
	for _, present := range []bool{
		c.ResourceExists != nil, c.StatusCondition != nil, c.ReplicaCount != nil,
		c.HealthEndpoint != nil, c.ExecCommand != nil, c.NamespaceExists != nil,
		c.CustomResource != nil,
	} {
		if present {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("condition declares %d variants, want exactly one", set)
	}
	switch c.Type {
	case ConditionResourceExists:
		// Variant struct is optional: it only carries an apiVersion hint.
		if set == 1 && c.ResourceExists == nil {
			return fmt.Errorf("condition type %s has mismatched parameters", c.Type)
		}
	case ConditionStatusCondition:
		if c.StatusCondition == nil {
			return fmt.Errorf("condition type %s requires statusCondition parameters", c.Type)
		}
		if strings.TrimSpace(c.StatusCondition.ConditionType) == "" {
			return fmt.Errorf("status-condition requires a conditionType")
		}
	case ConditionReplicaCount:
		if c.ReplicaCount == nil {
			return fmt.Errorf("condition type %s requires replicaCount parameters", c.Type)
		}
		if c.ReplicaCount.Replicas < 0 {
			return fmt.Errorf("replica-count requires a non-negative replica target")
		}
	case ConditionHealthEndpoint:
		if c.HealthEndpoint == nil {
			return fmt.Errorf("condition type %s requires healthEndpoint parameters", c.Type)
		}
		if strings.TrimSpace(c.HealthEndpoint.URL) == "" {
			return fmt.Errorf("health-endpoint requires a url")
		}
	case ConditionExecCommand:
		if c.ExecCommand == nil {
			return fmt.Errorf("condition type %s requires execCommand parameters", c.Type)
		}
		if len(c.ExecCommand.Command) == 0 {
			return fmt.Errorf("exec-command requires a non-empty command")
		}
	case ConditionNamespaceExists:
		if set == 1 && c.NamespaceExists == nil {
			return fmt.Errorf("condition type %s has mismatched parameters", c.Type)
		}
	case ConditionCustomResource:
		if c.CustomResource == nil {
			return fmt.Errorf("condition type %s requires customResource parameters", c.Type)
		}
		if strings.TrimSpace(c.CustomResource.APIVersion) == "" {
			return fmt.Errorf("custom-resource-condition requires an apiVersion")
		}
		if strings.TrimSpace(c.CustomResource.ConditionType) == "" {
			return fmt.Errorf("custom-resource-condition requires a conditionType")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// DependencySpec describes how a node's readiness is polled and how the
// scheduler reacts to the polling outcome.
type DependencySpec struct {
	Condition Condition `json:"condition"`

	// Timeout bounds one full polling loop. Required: there is no default,
	// callers must choose how long they are willing to wait.
	Timeout time.Duration `json:"timeout"`
	// RetryInterval is the base wait between attempts, scaled by Backoff.
	RetryInterval time.Duration `json:"retryInterval,omitempty"`
	// MaxRetries bounds attempts beyond the first; 0 means a single attempt.
	MaxRetries int `json:"maxRetries,omitempty"`

	Backoff   BackoffPolicy `json:"backoff,omitempty"`
	OnFailure FailureAction `json:"onFailure,omitempty"`
	OnSuccess SuccessAction `json:"onSuccess,omitempty"`

	// OuterRetryLimit bounds how many times OnFailure=retry-node restarts the
	// full polling budget. It is deliberately distinct from MaxRetries, which
	// bounds attempts within a single polling loop.
	OuterRetryLimit int `json:"outerRetryLimit,omitempty"`
}

// Validate checks the spec's polling parameters and enums.
func (s DependencySpec) Validate() error {
	if err := s.Condition.Validate(); err != nil {
		return err
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout is required and must be positive")
	}
	if s.RetryInterval < 0 {
		return fmt.Errorf("retryInterval must not be negative")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must not be negative")
	}
	if s.OuterRetryLimit < 0 {
		return fmt.Errorf("outerRetryLimit must not be negative")
	}
	switch s.Backoff {
	case "", BackoffFixed, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("unknown backoff policy %q", s.Backoff)
	}
	switch s.OnFailure {
	case "", FailPlan, RetryNode, ContinuePlan:
	default:
		return fmt.Errorf("unknown failure action %q", s.OnFailure)
	}
	switch s.OnSuccess {
	case "", SuccessContinue, SuccessNotify:
	default:
		return fmt.Errorf("unknown success action %q", s.OnSuccess)
	}
	return nil
}

// Node is one declared resource plus its readiness spec. State is owned by
// the scheduler: exactly one goroutine ever writes it, so reads taken after
// the owning layer completes need no locking.
type Node struct {
	ID    NodeID         `json:"id"`
	Spec  DependencySpec `json:"spec"`
	State ExecutionState `json:"state"`
}

// Edge is a directed dependency: To waits until From is Ready.
type Edge struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}
