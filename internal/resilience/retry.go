// Package resilience holds caller-level wrappers around an extraction.Extractor.
// Nothing in the core pipeline retries on its own; these wrappers are opt-in.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/pkg/schema"
)

// Backoff strategies.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// RetryPolicy configures Retrying. Max is the number of retries after the
// first attempt; zero disables retrying.
type RetryPolicy struct {
	Max      int           `json:"max"`
	Backoff  string        `json:"backoff,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"`
	MaxDelay time.Duration `json:"max_delay,omitempty"`
}

// IsRetryableError reports whether another attempt may succeed. Only
// extraction service failures qualify: a malformed response or a rejected
// request will look the same the second time, and a cancelled caller is gone.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var e *schema.Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// ComputeBackoff calculates the delay before retry number attempt (zero-based).
// Supports none, constant, linear, and exponential backoff with optional MaxDelay cap.
func ComputeBackoff(policy RetryPolicy, attempt int) time.Duration {
	base := policy.Delay
	if base <= 0 {
		return 0
	}

	var delay time.Duration
	switch policy.Backoff {
	case BackoffExponential:
		// 2^attempt * base
		multiplier := time.Duration(1)
		for i := 0; i < attempt; i++ {
			multiplier *= 2
		}
		delay = base * multiplier
	case BackoffLinear:
		delay = base * time.Duration(attempt+1)
	case BackoffNone:
		delay = 0
	default: // constant or empty
		delay = base
	}

	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// WaitForBackoff sleeps for the computed backoff duration or returns early if the context is cancelled.
// Returns an error if the context was cancelled during the wait.
func WaitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrying retries extraction service failures according to Policy.
type Retrying struct {
	next   extraction.Extractor
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetrying wraps next. A nil logger discards retry logs.
func NewRetrying(next extraction.Extractor, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Extract calls the wrapped extractor until it succeeds, fails with a
// non-retryable error, or the retry budget is spent.
func (r *Retrying) Extract(ctx context.Context, req extraction.Request) (*schema.Extraction, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.Max; attempt++ {
		if attempt > 0 {
			delay := ComputeBackoff(r.policy, attempt-1)
			r.logger.InfoContext(ctx, "retrying extraction",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()))
			if err := WaitForBackoff(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		out, err := r.next.Extract(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRetryableError(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

var _ extraction.Extractor = (*Retrying)(nil)
