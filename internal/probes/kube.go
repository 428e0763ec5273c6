// File: internal/probes/kube.go
// Brief: Kubernetes-backed readiness checks for the built-in condition types.

// Package probes supplies the concrete probe backends: Kubernetes object
// lookups, workload replica counts, status-condition matching, pod exec, and
// HTTP health endpoints. Each backend is one cheap idempotent check; the
// polling policy lives in internal/probe.
package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	kexec "k8s.io/client-go/util/exec"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/kube"
	"github.com/example/readyctl/internal/probe"
)

// NewRegistry wires every built-in condition type against the given cluster
// client. The registry is an explicit object: callers pass it into the
// scheduler, tests swap in fakes per type.
func NewRegistry(client *kube.Client, log logr.Logger) *probe.Registry {
	r := probe.NewRegistry()
	k := &Kube{client: client, log: log}
	r.Register(depgraph.ConditionResourceExists, probe.BackendFunc(k.ResourceExists))
	r.Register(depgraph.ConditionNamespaceExists, probe.BackendFunc(k.NamespaceExists))
	r.Register(depgraph.ConditionReplicaCount, probe.BackendFunc(k.ReplicaCount))
	r.Register(depgraph.ConditionStatusCondition, probe.BackendFunc(k.StatusCondition))
	r.Register(depgraph.ConditionCustomResource, probe.BackendFunc(k.CustomResourceCondition))
	r.Register(depgraph.ConditionExecCommand, probe.BackendFunc(k.ExecCommand))
	r.Register(depgraph.ConditionHealthEndpoint, NewHTTP(log))
	return r
}

// Kube implements the cluster-backed condition types on a shared client.
type Kube struct {
	client *kube.Client
	log    logr.Logger
}

// NewKube returns cluster-backed probe implementations.
func NewKube(client *kube.Client, log logr.Logger) *Kube {
	return &Kube{client: client, log: log}
}

// ResourceExists answers ready once the object named by the node identity can
// be fetched. NotFound is the normal "not yet" answer, not a probe error.
func (k *Kube) ResourceExists(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	apiVersion := ""
	if c := node.Spec.Condition.ResourceExists; c != nil {
		apiVersion = c.APIVersion
	}
	_, err := k.fetch(ctx, node.ID, apiVersion)
	if apierrors.IsNotFound(err) {
		return false, fmt.Sprintf("%s not found", node.ID), nil
	}
	if err != nil {
		return false, "", err
	}
	return true, fmt.Sprintf("%s exists", node.ID), nil
}

// NamespaceExists answers ready once the namespace exists and is active. The
// node's namespace names the target; cluster-scoped declarations may use the
// node name instead.
func (k *Kube) NamespaceExists(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	name := node.ID.Namespace
	if name == "" {
		name = node.ID.Name
	}
	ns, err := k.client.Clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, fmt.Sprintf("namespace %s not found", name), nil
	}
	if err != nil {
		return false, "", errors.Wrapf(err, "get namespace %s", name)
	}
	if ns.Status.Phase == corev1.NamespaceTerminating {
		return false, fmt.Sprintf("namespace %s is terminating", name), nil
	}
	return true, fmt.Sprintf("namespace %s active", name), nil
}

// ReplicaCount answers ready once the workload reports at least the target
// number of ready replicas. Supported kinds mirror what the engine can count:
// Deployment, StatefulSet, ReplicaSet, and DaemonSet.
func (k *Kube) ReplicaCount(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	cond := node.Spec.Condition.ReplicaCount
	if cond == nil {
		return false, "", fmt.Errorf("replica-count condition missing parameters")
	}
	ns := node.ID.Namespace
	if ns == "" {
		ns = k.client.Namespace
	}
	name := node.ID.Name

	var ready, desired int32
	switch strings.ToLower(node.ID.Kind) {
	case "deployment":
		dep, err := k.client.Clientset.AppsV1().Deployments(ns).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return notFoundOrError(err, node.ID)
		}
		ready = dep.Status.ReadyReplicas
		desired = replicasOrDefault(dep.Spec.Replicas)
	case "statefulset":
		sts, err := k.client.Clientset.AppsV1().StatefulSets(ns).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return notFoundOrError(err, node.ID)
		}
		ready = sts.Status.ReadyReplicas
		desired = replicasOrDefault(sts.Spec.Replicas)
	case "replicaset":
		rs, err := k.client.Clientset.AppsV1().ReplicaSets(ns).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return notFoundOrError(err, node.ID)
		}
		ready = rs.Status.ReadyReplicas
		desired = replicasOrDefault(rs.Spec.Replicas)
	case "daemonset":
		ds, err := k.client.Clientset.AppsV1().DaemonSets(ns).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return notFoundOrError(err, node.ID)
		}
		ready = ds.Status.NumberReady
		desired = ds.Status.DesiredNumberScheduled
	default:
		return false, "", fmt.Errorf("replica-count does not support kind %q", node.ID.Kind)
	}

	detail := fmt.Sprintf("%d/%d replicas ready (target %d)", ready, desired, cond.Replicas)
	return ready >= cond.Replicas, detail, nil
}

// StatusCondition answers ready once the object carries a status condition of
// the requested type with the expected value (default "True").
func (k *Kube) StatusCondition(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	cond := node.Spec.Condition.StatusCondition
	if cond == nil {
		return false, "", fmt.Errorf("status-condition missing parameters")
	}
	return k.matchCondition(ctx, node.ID, cond.APIVersion, cond.ConditionType, cond.ExpectedStatus)
}

// CustomResourceCondition is StatusCondition for arbitrary custom resources;
// the apiVersion is mandatory because discovery cannot guess CRD groups.
func (k *Kube) CustomResourceCondition(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	cond := node.Spec.Condition.CustomResource
	if cond == nil {
		return false, "", fmt.Errorf("custom-resource-condition missing parameters")
	}
	return k.matchCondition(ctx, node.ID, cond.APIVersion, cond.ConditionType, cond.ExpectedStatus)
}

// ExecCommand answers ready when the command exits zero inside the pod named
// by the node identity. Non-zero exit is a "not yet", transport problems are
// probe errors.
func (k *Kube) ExecCommand(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	cond := node.Spec.Condition.ExecCommand
	if cond == nil {
		return false, "", fmt.Errorf("exec-command missing parameters")
	}
	_, stderr, err := k.client.Exec(ctx, node.ID.Namespace, node.ID.Name, cond.Container, cond.Command)
	if err != nil {
		var exit kexec.CodeExitError
		if errors.As(err, &exit) {
			detail := fmt.Sprintf("command exited %d", exit.Code)
			if msg := strings.TrimSpace(stderr); msg != "" {
				detail += ": " + lastLine(msg)
			}
			return false, detail, nil
		}
		return false, "", errors.Wrapf(err, "exec in pod %s/%s", node.ID.Namespace, node.ID.Name)
	}
	return true, "command exited 0", nil
}

func (k *Kube) matchCondition(ctx context.Context, id depgraph.NodeID, apiVersion, condType, expected string) (bool, string, error) {
	if expected == "" {
		expected = "True"
	}
	obj, err := k.fetch(ctx, id, apiVersion)
	if apierrors.IsNotFound(err) {
		return false, fmt.Sprintf("%s not found", id), nil
	}
	if err != nil {
		return false, "", err
	}

	conditions, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil {
		return false, "", errors.Wrapf(err, "read status.conditions of %s", id)
	}
	if !found {
		return false, fmt.Sprintf("%s has no status conditions yet", id), nil
	}
	for _, raw := range conditions {
		c, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		ct, _, _ := unstructured.NestedString(c, "type")
		if ct != condType {
			continue
		}
		status, _, _ := unstructured.NestedString(c, "status")
		detail := fmt.Sprintf("condition %s=%s (want %s)", condType, status, expected)
		if reason, _, _ := unstructured.NestedString(c, "reason"); reason != "" {
			detail += " reason=" + reason
		}
		return strings.EqualFold(status, expected), detail, nil
	}
	return false, fmt.Sprintf("condition %s not reported yet", condType), nil
}

// fetch resolves the node's kind through the RESTMapper and GETs the object
// with the dynamic client, so any registered type works, CRDs included.
func (k *Kube) fetch(ctx context.Context, id depgraph.NodeID, apiVersion string) (*unstructured.Unstructured, error) {
	gk := schema.GroupKind{Kind: id.Kind}
	var versions []string
	if apiVersion != "" {
		gv, err := schema.ParseGroupVersion(apiVersion)
		if err != nil {
			return nil, errors.Wrapf(err, "parse apiVersion %q", apiVersion)
		}
		gk.Group = gv.Group
		versions = append(versions, gv.Version)
	}
	mapping, err := k.client.RESTMapper.RESTMapping(gk, versions...)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve kind %q", id.Kind)
	}

	ri := k.client.Dynamic.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := id.Namespace
		if ns == "" {
			ns = k.client.Namespace
		}
		return ri.Namespace(ns).Get(ctx, id.Name, metav1.GetOptions{})
	}
	return ri.Get(ctx, id.Name, metav1.GetOptions{})
}

func notFoundOrError(err error, id depgraph.NodeID) (bool, string, error) {
	if apierrors.IsNotFound(err) {
		return false, fmt.Sprintf("%s not found", id), nil
	}
	return false, "", errors.Wrapf(err, "get %s", id)
}

func replicasOrDefault(r *int32) int32 {
	if r == nil {
		return 1
	}
	return *r
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
