// File: internal/planfile/load.go
// Brief: Parse a plan document and build the dependency graph.

package planfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/readyctl/internal/depgraph"
)

const planKind = "Plan"

// Load reads and parses a plan document from disk and builds its graph.
func Load(path string) (*PlanFile, *depgraph.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	pf, g, err := Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pf, g, nil
}

// Parse decodes a plan document and builds the dependency graph it declares.
// Needs entries may name a node by bare name (when unambiguous), kind/name,
// or kind/namespace/name.
func Parse(raw []byte) (*PlanFile, *depgraph.Graph, error) {
	var pf PlanFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, nil, err
	}
	if pf.Kind != "" && pf.Kind != planKind {
		return nil, nil, fmt.Errorf("unexpected document kind %q, want %s", pf.Kind, planKind)
	}
	if len(pf.Resources) == 0 {
		return nil, nil, fmt.Errorf("plan declares no resources")
	}

	b := depgraph.NewBuilder()
	ids := make([]depgraph.NodeID, len(pf.Resources))
	for i := range pf.Resources {
		res := &pf.Resources[i]
		if strings.TrimSpace(res.Kind) == "" || strings.TrimSpace(res.Name) == "" {
			return nil, nil, fmt.Errorf("resource %d: kind and name are required", i)
		}
		ns := res.Namespace
		if ns == "" {
			ns = pf.Defaults.Namespace
		}
		id := depgraph.NodeID{Kind: res.Kind, Name: res.Name, Namespace: ns}

		spec, err := resolveSpec(pf.Defaults.Readiness, res.Readiness)
		if err != nil {
			return nil, nil, fmt.Errorf("resource %s: %w", id, err)
		}
		if _, err := b.AddNode(id, spec); err != nil {
			return nil, nil, err
		}
		ids[i] = id
	}

	idx := buildNeedsIndex(ids)
	for i := range pf.Resources {
		for _, need := range pf.Resources[i].Needs {
			dep, err := idx.resolve(need)
			if err != nil {
				return nil, nil, fmt.Errorf("resource %s: %w", ids[i], err)
			}
			if err := b.AddEdge(dep, ids[i]); err != nil {
				return nil, nil, err
			}
		}
	}

	return &pf, b.Graph(), nil
}

// resolveSpec folds plan defaults under the resource's own readiness block
// and maps the result onto the engine's spec. Explicit resource values win.
func resolveSpec(defaults, own ReadinessSpec) (depgraph.DependencySpec, error) {
	merged := defaults
	if own.Condition != nil {
		merged.Condition = own.Condition
	}
	if own.Timeout != nil {
		merged.Timeout = own.Timeout
	}
	if own.RetryInterval != nil {
		merged.RetryInterval = own.RetryInterval
	}
	if own.MaxRetries != nil {
		merged.MaxRetries = own.MaxRetries
	}
	if own.Backoff != "" {
		merged.Backoff = own.Backoff
	}
	if own.OnFailure != "" {
		merged.OnFailure = own.OnFailure
	}
	if own.OnSuccess != "" {
		merged.OnSuccess = own.OnSuccess
	}
	if own.OuterRetryLimit != nil {
		merged.OuterRetryLimit = own.OuterRetryLimit
	}

	var spec depgraph.DependencySpec
	if merged.Condition == nil {
		return spec, fmt.Errorf("readiness condition is required")
	}
	cond, err := buildCondition(*merged.Condition)
	if err != nil {
		return spec, err
	}
	spec.Condition = cond

	if merged.Timeout == nil {
		return spec, fmt.Errorf("readiness timeout is required")
	}
	spec.Timeout = merged.Timeout.Duration
	if merged.RetryInterval != nil {
		spec.RetryInterval = merged.RetryInterval.Duration
	}
	if merged.MaxRetries != nil {
		spec.MaxRetries = *merged.MaxRetries
	}
	if merged.OuterRetryLimit != nil {
		spec.OuterRetryLimit = *merged.OuterRetryLimit
	}

	if spec.Backoff, err = depgraph.ParseBackoffPolicy(merged.Backoff); err != nil {
		return spec, err
	}
	if spec.OnFailure, err = depgraph.ParseFailureAction(merged.OnFailure); err != nil {
		return spec, err
	}
	if spec.OnSuccess, err = depgraph.ParseSuccessAction(merged.OnSuccess); err != nil {
		return spec, err
	}
	return spec, nil
}

func buildCondition(cs ConditionSpec) (depgraph.Condition, error) {
	ct, err := depgraph.ParseConditionType(cs.Type)
	if err != nil {
		return depgraph.Condition{}, err
	}
	cond := depgraph.Condition{Type: ct}
	switch ct {
	case depgraph.ConditionResourceExists:
		if cs.ObjectAPIVersion != "" {
			cond.ResourceExists = &depgraph.ResourceExistsCondition{APIVersion: cs.ObjectAPIVersion}
		}
	case depgraph.ConditionStatusCondition:
		cond.StatusCondition = &depgraph.StatusConditionCondition{
			APIVersion:     cs.ObjectAPIVersion,
			ConditionType:  cs.Condition,
			ExpectedStatus: cs.Status,
		}
	case depgraph.ConditionReplicaCount:
		if cs.Replicas == nil {
			return cond, fmt.Errorf("replica-count requires replicas")
		}
		cond.ReplicaCount = &depgraph.ReplicaCountCondition{Replicas: *cs.Replicas}
	case depgraph.ConditionHealthEndpoint:
		cond.HealthEndpoint = &depgraph.HealthEndpointCondition{
			URL:            cs.URL,
			Method:         cs.Method,
			Headers:        cs.Headers,
			ExpectedStatus: cs.HTTPStatus,
		}
	case depgraph.ConditionExecCommand:
		cond.ExecCommand = &depgraph.ExecCommandCondition{
			Container: cs.Container,
			Command:   cs.Command,
		}
	case depgraph.ConditionNamespaceExists:
		cond.NamespaceExists = &depgraph.NamespaceExistsCondition{}
	case depgraph.ConditionCustomResource:
		cond.CustomResource = &depgraph.CustomResourceCondition{
			APIVersion:     cs.ObjectAPIVersion,
			ConditionType:  cs.Condition,
			ExpectedStatus: cs.Status,
		}
	}
	return cond, nil
}

// needsIndex resolves the three accepted dependency reference forms.
type needsIndex struct {
	byName map[string][]depgraph.NodeID
	byRef  map[string][]depgraph.NodeID
	byFull map[string]depgraph.NodeID
}

func buildNeedsIndex(ids []depgraph.NodeID) *needsIndex {
	idx := &needsIndex{
		byName: map[string][]depgraph.NodeID{},
		byRef:  map[string][]depgraph.NodeID{},
		byFull: map[string]depgraph.NodeID{},
	}
	for _, id := range ids {
		idx.byName[id.Name] = append(idx.byName[id.Name], id)
		idx.byRef[id.Kind+"/"+id.Name] = append(idx.byRef[id.Kind+"/"+id.Name], id)
		idx.byFull[id.Kind+"/"+id.Namespace+"/"+id.Name] = id
	}
	return idx
}

func (idx *needsIndex) resolve(ref string) (depgraph.NodeID, error) {
	ref = strings.TrimSpace(ref)
	switch strings.Count(ref, "/") {
	case 0:
		matches := idx.byName[ref]
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			return depgraph.NodeID{}, fmt.Errorf("needs %q is ambiguous, use kind/name or kind/namespace/name", ref)
		}
	case 1:
		matches := idx.byRef[ref]
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			return depgraph.NodeID{}, fmt.Errorf("needs %q is ambiguous across namespaces, use kind/namespace/name", ref)
		}
	case 2:
		if id, ok := idx.byFull[ref]; ok {
			return id, nil
		}
	}
	return depgraph.NodeID{}, fmt.Errorf("needs %q does not match any declared resource", ref)
}
