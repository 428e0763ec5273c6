package planfile

import (
	"strings"
	"testing"
	"time"

	"github.com/example/readyctl/internal/depgraph"
)

const samplePlan = `
apiVersion: readyctl.dev/v1
kind: Plan
name: shop
defaults:
  namespace: prod
  readiness:
    timeout: 5m
    retryInterval: 10s
    maxRetries: 5
    backoff: exponential
resources:
  - kind: Namespace
    name: prod
    readiness:
      condition:
        type: namespace-exists
      timeout: 30s
  - kind: Deployment
    name: db
    namespace: data
    needs: [prod]
    readiness:
      condition:
        type: replica-count
        replicas: 2
      onFailure: retry-node
      outerRetryLimit: 2
  - kind: Deployment
    name: api
    needs: [Deployment/data/db]
    readiness:
      condition:
        type: health-endpoint
        url: http://api.prod.svc/healthz
        httpStatus: 204
      onSuccess: notify
`

func TestParseBuildsGraph(t *testing.T) {
	pf, g, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.Name != "shop" {
		t.Fatalf("plan name = %q, want shop", pf.Name)
	}
	if g.Len() != 3 {
		t.Fatalf("graph has %d nodes, want 3", g.Len())
	}

	db, ok := g.Node(depgraph.NodeID{Kind: "Deployment", Name: "db", Namespace: "data"})
	if !ok {
		t.Fatalf("db node missing; explicit namespace must win over the default")
	}
	if db.Spec.Timeout != 5*time.Minute {
		t.Fatalf("db timeout = %v, want inherited 5m", db.Spec.Timeout)
	}
	if db.Spec.RetryInterval != 10*time.Second || db.Spec.MaxRetries != 5 {
		t.Fatalf("db polling = %v/%d, want inherited 10s/5", db.Spec.RetryInterval, db.Spec.MaxRetries)
	}
	if db.Spec.Backoff != depgraph.BackoffExponential {
		t.Fatalf("db backoff = %q, want exponential", db.Spec.Backoff)
	}
	if db.Spec.OnFailure != depgraph.RetryNode || db.Spec.OuterRetryLimit != 2 {
		t.Fatalf("db failure handling = %q/%d, want retry-node/2", db.Spec.OnFailure, db.Spec.OuterRetryLimit)
	}
	if db.Spec.Condition.ReplicaCount == nil || db.Spec.Condition.ReplicaCount.Replicas != 2 {
		t.Fatalf("db condition = %+v, want replica-count 2", db.Spec.Condition)
	}

	ns, ok := g.Node(depgraph.NodeID{Kind: "Namespace", Name: "prod", Namespace: "prod"})
	if !ok {
		t.Fatalf("namespace node missing; default namespace must apply")
	}
	if ns.Spec.Timeout != 30*time.Second {
		t.Fatalf("namespace timeout = %v, want overridden 30s", ns.Spec.Timeout)
	}

	api, ok := g.Node(depgraph.NodeID{Kind: "Deployment", Name: "api", Namespace: "prod"})
	if !ok {
		t.Fatalf("api node missing")
	}
	if api.Spec.OnSuccess != depgraph.SuccessNotify {
		t.Fatalf("api onSuccess = %q, want notify", api.Spec.OnSuccess)
	}
	he := api.Spec.Condition.HealthEndpoint
	if he == nil || he.URL != "http://api.prod.svc/healthz" || he.ExpectedStatus != 204 {
		t.Fatalf("api condition = %+v", api.Spec.Condition)
	}

	deps := g.DependenciesOf(api.ID)
	if len(deps) != 1 || deps[0] != db.ID {
		t.Fatalf("api depends on %v, want [%v]", deps, db.ID)
	}
	deps = g.DependenciesOf(db.ID)
	if len(deps) != 1 || deps[0] != ns.ID {
		t.Fatalf("db depends on %v, want [%v]", deps, ns.ID)
	}
}

func TestParseValidatesAgainstEngine(t *testing.T) {
	layersReady, err := func() ([][]depgraph.NodeID, error) {
		_, g, err := Parse([]byte(samplePlan))
		if err != nil {
			return nil, err
		}
		return depgraph.Validate(g)
	}()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(layersReady) != 3 {
		t.Fatalf("got %d layers, want 3", len(layersReady))
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	doc := strings.Replace(samplePlan, "name: shop", "name: shop\nbogus: true", 1)
	if _, _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestParseRejectsUnknownNeed(t *testing.T) {
	doc := strings.Replace(samplePlan, "needs: [prod]", "needs: [ghost]", 1)
	if _, _, err := Parse([]byte(doc)); err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("err = %v, want unresolved needs error naming ghost", err)
	}
}

func TestParseRejectsAmbiguousNeed(t *testing.T) {
	doc := `
kind: Plan
defaults:
  readiness:
    timeout: 1m
resources:
  - kind: Deployment
    name: db
    namespace: a
    readiness:
      condition: {type: resource-exists}
  - kind: Deployment
    name: db
    namespace: b
    readiness:
      condition: {type: resource-exists}
  - kind: Deployment
    name: api
    namespace: a
    needs: [db]
    readiness:
      condition: {type: resource-exists}
`
	if _, _, err := Parse([]byte(doc)); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("err = %v, want ambiguity error", err)
	}

	fixed := strings.Replace(doc, "needs: [db]", "needs: [Deployment/b/db]", 1)
	if _, _, err := Parse([]byte(fixed)); err != nil {
		t.Fatalf("fully-qualified need must resolve: %v", err)
	}
}

func TestParseRequiresTimeout(t *testing.T) {
	doc := `
kind: Plan
resources:
  - kind: Deployment
    name: db
    readiness:
      condition: {type: resource-exists}
`
	if _, _, err := Parse([]byte(doc)); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("err = %v, want missing timeout error", err)
	}
}

func TestParseRejectsWrongKind(t *testing.T) {
	doc := strings.Replace(samplePlan, "kind: Plan", "kind: Stack", 1)
	if _, _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for wrong document kind")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	doc := strings.Replace(samplePlan, "timeout: 5m", "timeout: soon", 1)
	if _, _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
}
