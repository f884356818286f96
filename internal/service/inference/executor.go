// Package inference holds what the acoustic and diarization backends share:
// the scheduling policy for blocking inference calls, model load options and
// the HTTP client for the model sidecar.
package inference

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"indic-speech-stream-service/internal/observability/metrics"
)

// Policy selects how inference calls from all sessions are scheduled.
type Policy string

const (
	// PolicyInline runs one inference at a time process-wide. A long call
	// stalls every other session until it returns.
	PolicyInline Policy = "inline"
	// PolicyPool runs up to PoolSize inference calls concurrently.
	PolicyPool Policy = "pool"
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyInline, PolicyPool:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown inference policy %q (want inline or pool)", s)
	}
}

// Executor bounds concurrent inference calls according to a Policy.
type Executor struct {
	policy  Policy
	slots   int64
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
}

// NewExecutor creates an executor. poolSize is ignored for PolicyInline and
// clamped to at least 1 for PolicyPool.
func NewExecutor(policy Policy, poolSize int) *Executor {
	slots := int64(1)
	if policy == PolicyPool && poolSize > 1 {
		slots = int64(poolSize)
	}
	return &Executor{
		policy:  policy,
		slots:   slots,
		sem:     semaphore.NewWeighted(slots),
		metrics: metrics.DefaultMetrics,
	}
}

// Policy returns the configured policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Slots returns the number of concurrent inference calls allowed.
func (e *Executor) Slots() int {
	return int(e.slots)
}

// Do waits for a free slot and runs fn. It returns ctx.Err() if the context
// ends while waiting; fn itself is not interrupted by the executor.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)
	e.metrics.RecordQueueWait(time.Since(start).Seconds())

	return fn(ctx)
}
