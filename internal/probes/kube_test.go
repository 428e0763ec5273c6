package probes

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/kube"
)

func int32ptr(v int32) *int32 { return &v }

func probeNode(kind, name, namespace string, cond depgraph.Condition) *depgraph.Node {
	return &depgraph.Node{
		ID:   depgraph.NodeID{Kind: kind, Name: name, Namespace: namespace},
		Spec: depgraph.DependencySpec{Condition: cond, Timeout: time.Minute},
	}
}

func fakeKube(objects ...runtime.Object) *Kube {
	return NewKube(&kube.Client{
		Clientset: fake.NewSimpleClientset(objects...),
		Namespace: "default",
	}, logr.Discard())
}

func TestReplicaCountDeployment(t *testing.T) {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "default"},
		Spec:       appsv1.DeploymentSpec{Replicas: int32ptr(2)},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: 1},
	}
	k := fakeKube(dep)
	node := probeNode("Deployment", "db", "default", depgraph.Condition{
		Type:         depgraph.ConditionReplicaCount,
		ReplicaCount: &depgraph.ReplicaCountCondition{Replicas: 2},
	})

	ready, detail, err := k.ReplicaCount(context.Background(), node)
	if err != nil {
		t.Fatalf("ReplicaCount: %v", err)
	}
	if ready {
		t.Fatalf("expected not ready with 1/2 replicas, detail=%q", detail)
	}

	dep.Status.ReadyReplicas = 2
	k = fakeKube(dep)
	ready, detail, err = k.ReplicaCount(context.Background(), node)
	if err != nil {
		t.Fatalf("ReplicaCount: %v", err)
	}
	if !ready {
		t.Fatalf("expected ready with 2/2 replicas, detail=%q", detail)
	}
}

func TestReplicaCountStatefulSet(t *testing.T) {
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "data"},
		Spec:       appsv1.StatefulSetSpec{Replicas: int32ptr(3)},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: 3},
	}
	k := fakeKube(sts)
	node := probeNode("StatefulSet", "db", "data", depgraph.Condition{
		Type:         depgraph.ConditionReplicaCount,
		ReplicaCount: &depgraph.ReplicaCountCondition{Replicas: 3},
	})

	ready, _, err := k.ReplicaCount(context.Background(), node)
	if err != nil || !ready {
		t.Fatalf("ready=%v err=%v, want ready", ready, err)
	}
}

func TestReplicaCountMissingWorkloadIsNotAnError(t *testing.T) {
	k := fakeKube()
	node := probeNode("Deployment", "ghost", "default", depgraph.Condition{
		Type:         depgraph.ConditionReplicaCount,
		ReplicaCount: &depgraph.ReplicaCountCondition{Replicas: 1},
	})

	ready, detail, err := k.ReplicaCount(context.Background(), node)
	if err != nil {
		t.Fatalf("missing workload must be a not-ready answer, got error %v", err)
	}
	if ready {
		t.Fatalf("expected not ready, detail=%q", detail)
	}
}

func TestReplicaCountUnsupportedKind(t *testing.T) {
	k := fakeKube()
	node := probeNode("ConfigMap", "cm", "default", depgraph.Condition{
		Type:         depgraph.ConditionReplicaCount,
		ReplicaCount: &depgraph.ReplicaCountCondition{Replicas: 1},
	})
	if _, _, err := k.ReplicaCount(context.Background(), node); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}

func TestNamespaceExists(t *testing.T) {
	active := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "prod"},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceActive},
	}
	terminating := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "doomed"},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceTerminating},
	}
	k := fakeKube(active, terminating)
	cond := depgraph.Condition{Type: depgraph.ConditionNamespaceExists}

	ready, _, err := k.NamespaceExists(context.Background(), probeNode("Namespace", "prod", "", cond))
	if err != nil || !ready {
		t.Fatalf("active namespace: ready=%v err=%v, want ready", ready, err)
	}

	ready, detail, err := k.NamespaceExists(context.Background(), probeNode("Namespace", "doomed", "", cond))
	if err != nil || ready {
		t.Fatalf("terminating namespace: ready=%v err=%v detail=%q, want not ready", ready, err, detail)
	}

	ready, _, err = k.NamespaceExists(context.Background(), probeNode("Namespace", "missing", "", cond))
	if err != nil || ready {
		t.Fatalf("missing namespace: ready=%v err=%v, want not ready without error", ready, err)
	}
}

// dynamicKube wires a dynamic fake plus a static RESTMapper for the
// mapper-driven backends.
func dynamicKube(t *testing.T, gvk schema.GroupVersionKind, resource string, objects ...runtime.Object) *Kube {
	t.Helper()
	mapper := meta.NewDefaultRESTMapper(nil)
	mapper.Add(gvk, meta.RESTScopeNamespace)
	gvr := gvk.GroupVersion().WithResource(resource)
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{gvr: gvk.Kind + "List"},
		objects...,
	)
	return NewKube(&kube.Client{
		Clientset:  fake.NewSimpleClientset(),
		Dynamic:    dyn,
		RESTMapper: mapper,
		Namespace:  "default",
	}, logr.Discard())
}

func TestResourceExists(t *testing.T) {
	gvk := schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]interface{}{"name": "db", "namespace": "default"},
	}}
	k := dynamicKube(t, gvk, "deployments", obj)

	cond := depgraph.Condition{Type: depgraph.ConditionResourceExists}
	ready, _, err := k.ResourceExists(context.Background(), probeNode("Deployment", "db", "default", cond))
	if err != nil || !ready {
		t.Fatalf("existing object: ready=%v err=%v, want ready", ready, err)
	}

	ready, detail, err := k.ResourceExists(context.Background(), probeNode("Deployment", "ghost", "default", cond))
	if err != nil || ready {
		t.Fatalf("missing object: ready=%v err=%v detail=%q, want not ready without error", ready, err, detail)
	}
}

func TestCustomResourceCondition(t *testing.T) {
	gvk := schema.GroupVersionKind{Group: "example.dev", Version: "v1alpha1", Kind: "Database"}
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "example.dev/v1alpha1",
		"kind":       "Database",
		"metadata":   map[string]interface{}{"name": "main", "namespace": "default"},
		"status": map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"type": "Provisioned", "status": "True", "reason": "Done"},
				map[string]interface{}{"type": "Healthy", "status": "False", "reason": "Syncing"},
			},
		},
	}}
	k := dynamicKube(t, gvk, "databases", obj)

	node := probeNode("Database", "main", "default", depgraph.Condition{
		Type: depgraph.ConditionCustomResource,
		CustomResource: &depgraph.CustomResourceCondition{
			APIVersion:    "example.dev/v1alpha1",
			ConditionType: "Provisioned",
		},
	})
	ready, _, err := k.CustomResourceCondition(context.Background(), node)
	if err != nil || !ready {
		t.Fatalf("Provisioned=True: ready=%v err=%v, want ready", ready, err)
	}

	node = probeNode("Database", "main", "default", depgraph.Condition{
		Type: depgraph.ConditionCustomResource,
		CustomResource: &depgraph.CustomResourceCondition{
			APIVersion:    "example.dev/v1alpha1",
			ConditionType: "Healthy",
		},
	})
	ready, detail, err := k.CustomResourceCondition(context.Background(), node)
	if err != nil || ready {
		t.Fatalf("Healthy=False: ready=%v err=%v detail=%q, want not ready", ready, err, detail)
	}

	node = probeNode("Database", "main", "default", depgraph.Condition{
		Type: depgraph.ConditionCustomResource,
		CustomResource: &depgraph.CustomResourceCondition{
			APIVersion:    "example.dev/v1alpha1",
			ConditionType: "Missing",
		},
	})
	ready, detail, err = k.CustomResourceCondition(context.Background(), node)
	if err != nil || ready {
		t.Fatalf("unreported condition: ready=%v err=%v detail=%q, want not ready", ready, err, detail)
	}
}

func TestStatusConditionNoStatusYet(t *testing.T) {
	gvk := schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]interface{}{"name": "db", "namespace": "default"},
	}}
	k := dynamicKube(t, gvk, "deployments", obj)

	node := probeNode("Deployment", "db", "default", depgraph.Condition{
		Type: depgraph.ConditionStatusCondition,
		StatusCondition: &depgraph.StatusConditionCondition{
			APIVersion:    "apps/v1",
			ConditionType: "Available",
		},
	})
	ready, detail, err := k.StatusCondition(context.Background(), node)
	if err != nil || ready {
		t.Fatalf("object without status: ready=%v err=%v detail=%q, want not ready", ready, err, detail)
	}
}
