// File: internal/planfile/types.go
// Brief: YAML plan document schema.

// Package planfile reads a declarative plan document and turns it into a
// validated dependency graph. The document format is intentionally flat: one
// resource per entry, dependencies by reference, polling parameters inline or
// inherited from plan-level defaults.
package planfile

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so plan documents can write "30s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

type APIVersionKind struct {
	APIVersion string `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	Kind       string `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// ConditionSpec is the flat YAML form of a readiness condition. Which fields
// are meaningful depends on Type; the loader maps them onto the engine's
// typed condition variants and rejects leftovers there.
type ConditionSpec struct {
	Type string `yaml:"type" json:"type"`

	// resource-exists, status-condition, custom-resource-condition
	ObjectAPIVersion string `yaml:"objectApiVersion,omitempty" json:"objectApiVersion,omitempty"`
	Condition        string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Status           string `yaml:"status,omitempty" json:"status,omitempty"`

	// replica-count
	Replicas *int32 `yaml:"replicas,omitempty" json:"replicas,omitempty"`

	// health-endpoint
	URL        string            `yaml:"url,omitempty" json:"url,omitempty"`
	Method     string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	HTTPStatus int               `yaml:"httpStatus,omitempty" json:"httpStatus,omitempty"`

	// exec-command
	Container string   `yaml:"container,omitempty" json:"container,omitempty"`
	Command   []string `yaml:"command,omitempty" json:"command,omitempty"`
}

// ReadinessSpec carries the per-resource polling parameters. Pointer fields
// distinguish "unset, inherit the default" from an explicit zero.
type ReadinessSpec struct {
	Condition *ConditionSpec `yaml:"condition,omitempty" json:"condition,omitempty"`

	Timeout       *Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryInterval *Duration `yaml:"retryInterval,omitempty" json:"retryInterval,omitempty"`
	MaxRetries    *int      `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`

	Backoff   string `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	OnFailure string `yaml:"onFailure,omitempty" json:"onFailure,omitempty"`
	OnSuccess string `yaml:"onSuccess,omitempty" json:"onSuccess,omitempty"`

	OuterRetryLimit *int `yaml:"outerRetryLimit,omitempty" json:"outerRetryLimit,omitempty"`
}

// PlanDefaults apply to every resource that does not override them.
type PlanDefaults struct {
	Namespace string        `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Readiness ReadinessSpec `yaml:"readiness,omitempty" json:"readiness,omitempty"`
}

// ResourceSpec declares one node of the plan.
type ResourceSpec struct {
	Kind      string   `yaml:"kind" json:"kind"`
	Name      string   `yaml:"name" json:"name"`
	Namespace string   `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Needs     []string `yaml:"needs,omitempty" json:"needs,omitempty"`

	Readiness ReadinessSpec `yaml:"readiness,omitempty" json:"readiness,omitempty"`
}

// PlanFile is the root document.
type PlanFile struct {
	APIVersionKind `yaml:",inline" json:",inline"`

	Name      string         `yaml:"name,omitempty" json:"name,omitempty"`
	Defaults  PlanDefaults   `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Resources []ResourceSpec `yaml:"resources,omitempty" json:"resources,omitempty"`
}
