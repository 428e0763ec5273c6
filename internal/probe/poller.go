// File: internal/probe/poller.go
// Brief: Retry/backoff/timeout policy shared by every condition type.

package probe

import (
	"context"
	"time"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/go-logr/logr"
)

// Outcome is the result of one full polling loop over a node.
type Outcome struct {
	// State is Ready, Failed, TimedOut, or Cancelled.
	State depgraph.ExecutionState
	// Attempts counts probe calls made during this loop, including the first.
	Attempts int
	// Elapsed is wall time from loop start to the terminal decision.
	Elapsed time.Duration
	// Detail is the backend's last human-readable observation.
	Detail string
	// Err carries MaxRetriesExceededError, ProbeTimeoutError, or the
	// cancellation cause. Nil when State is Ready.
	Err error
}

// Poller drives a backend until the node is ready, the retry budget is spent,
// or the timeout elapses. The poller owns scaling and waiting; the backend
// stays a single cheap check.
type Poller struct {
	Clock Clock
	Log   logr.Logger
}

// NewPoller returns a poller on the given clock.
func NewPoller(clock Clock, log logr.Logger) *Poller {
	if clock == nil {
		clock = RealClock()
	}
	return &Poller{Clock: clock, Log: log}
}

// Poll runs the polling policy for one node:
//
//  1. The first attempt fires immediately.
//  2. After ready=false or a backend error, wait RetryInterval scaled by the
//     backoff policy, never longer than the time left before the timeout.
//  3. Stop on whichever bound is hit first: MaxRetries attempts made (Failed)
//     or Timeout elapsed (TimedOut). The timeout also wins when the capped
//     wait lands exactly on the deadline.
//  4. ready=true ends the loop immediately.
//
// Cancellation is observed at the wait boundary and yields StateCancelled.
func (p *Poller) Poll(ctx context.Context, backend Backend, node *depgraph.Node) Outcome {
	spec := node.Spec
	start := p.Clock.Now()
	deadline := start.Add(spec.Timeout)

	var lastErr error
	var detail string
	attempt := 0

	outcome := func(state depgraph.ExecutionState, err error) Outcome {
		return Outcome{
			State:    state,
			Attempts: attempt,
			Elapsed:  p.Clock.Now().Sub(start),
			Detail:   detail,
			Err:      err,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return outcome(depgraph.StateCancelled, err)
		}

		attempt++
		ready, d, err := backend.Check(ctx, node)
		if d != "" {
			detail = d
		}
		if err != nil {
			lastErr = &ProbeExecutionError{ID: node.ID, Err: err}
			p.Log.V(1).Info("probe attempt errored", "node", node.ID.String(), "attempt", attempt, "error", err.Error())
		} else {
			lastErr = nil
			if ready {
				return outcome(depgraph.StateReady, nil)
			}
			p.Log.V(1).Info("probe not ready", "node", node.ID.String(), "attempt", attempt, "detail", detail)
		}

		now := p.Clock.Now()
		if !now.Before(deadline) {
			return outcome(depgraph.StateTimedOut, &ProbeTimeoutError{
				ID: node.ID, Timeout: spec.Timeout, Attempts: attempt, Last: lastErr,
			})
		}
		if attempt > spec.MaxRetries {
			return outcome(depgraph.StateFailed, &MaxRetriesExceededError{
				ID: node.ID, Attempts: attempt, Last: lastErr,
			})
		}

		delay := backoffDelay(spec.Backoff, spec.RetryInterval, attempt)
		if remaining := deadline.Sub(now); delay > remaining {
			delay = remaining
		}
		if err := p.Clock.Sleep(ctx, delay); err != nil {
			return outcome(depgraph.StateCancelled, err)
		}
		if !p.Clock.Now().Before(deadline) {
			return outcome(depgraph.StateTimedOut, &ProbeTimeoutError{
				ID: node.ID, Timeout: spec.Timeout, Attempts: attempt, Last: lastErr,
			})
		}
	}
}

// backoffDelay computes the wait after the given 1-based attempt.
func backoffDelay(policy depgraph.BackoffPolicy, interval time.Duration, attempt int) time.Duration {
	if interval <= 0 {
		return 0
	}
	switch policy {
	case depgraph.BackoffLinear:
		return interval * time.Duration(attempt)
	case depgraph.BackoffExponential:
		shift := attempt - 1
		if shift > 32 {
			shift = 32
		}
		return interval * time.Duration(int64(1)<<uint(shift))
	default: // fixed
		return interval
	}
}
