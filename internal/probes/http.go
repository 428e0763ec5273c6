// File: internal/probes/http.go
// Brief: HTTP health-endpoint probe backend.

package probes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/readyctl/internal/depgraph"
)

// HTTP probes health endpoints. A status mismatch is a normal "not yet";
// transport failures surface as probe errors so they show up in NodeResult.
type HTTP struct {
	Client *http.Client
	log    logr.Logger
}

// NewHTTP returns an HTTP backend with a bounded per-attempt timeout, so one
// hung endpoint cannot eat a node's whole polling budget.
func NewHTTP(log logr.Logger) *HTTP {
	return &HTTP{
		Client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Check performs one request described by the node's health-endpoint
// condition.
func (h *HTTP) Check(ctx context.Context, node *depgraph.Node) (bool, string, error) {
	cond := node.Spec.Condition.HealthEndpoint
	if cond == nil {
		return false, "", fmt.Errorf("health-endpoint condition missing parameters")
	}
	method := cond.Method
	if method == "" {
		method = http.MethodGet
	}
	want := cond.ExpectedStatus
	if want == 0 {
		want = http.StatusOK
	}

	req, err := http.NewRequestWithContext(ctx, method, cond.URL, nil)
	if err != nil {
		return false, "", fmt.Errorf("build request for %s: %w", cond.URL, err)
	}
	for k, v := range cond.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%s %s: %w", method, cond.URL, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	detail := fmt.Sprintf("%s %s -> %d (want %d)", method, cond.URL, resp.StatusCode, want)
	return resp.StatusCode == want, detail, nil
}
