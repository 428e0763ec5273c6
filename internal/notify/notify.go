// File: internal/notify/notify.go
// Brief: Success-notification sinks consumed by the scheduler.

// Package notify delivers node-readiness events to external listeners. Sinks
// are fire-and-forget from the scheduler's point of view: a failing sink is
// logged by its caller and never fails the plan.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

// Event describes one node outcome worth announcing.
type Event struct {
	Node     string        `json:"node"`
	Outcome  string        `json:"outcome"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsedNS"`
	At       time.Time     `json:"at"`
	Detail   string        `json:"detail,omitempty"`
}

// Sink receives events. Implementations should return quickly; the scheduler
// dispatches asynchronously but still drains sinks before reporting.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

type nopSink struct{}

func (nopSink) Notify(context.Context, Event) error { return nil }

// Nop returns a sink that drops every event.
func Nop() Sink { return nopSink{} }

// LogSink writes events to the structured log.
type LogSink struct {
	Log logr.Logger
}

func (s LogSink) Notify(_ context.Context, ev Event) error {
	s.Log.Info("node ready",
		"node", ev.Node,
		"outcome", ev.Outcome,
		"attempts", ev.Attempts,
		"elapsed", ev.Elapsed.String(),
	)
	return nil
}

// WebhookSink POSTs events as JSON to a fixed URL.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

// NewWebhookSink returns a webhook sink with a short client timeout so a slow
// listener cannot stall plan teardown.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
