package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/webhook"
)

// Ensure RetryDeliverer implements webhook.Deliverer.
var _ webhook.Deliverer = (*RetryDeliverer)(nil)

// RetryDeliverer is a decorator that retries transient delivery failures with
// exponential backoff and jitter before delegating to the wrapped Deliverer.
// The same envelope (same bytes, signature, and request ID) is resent on each
// retry so the receiver can deduplicate on X-Request-ID.
type RetryDeliverer struct {
	inner      webhook.Deliverer
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryDeliverer wraps a Deliverer with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryDeliverer(inner webhook.Deliverer, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryDeliverer {
	return &RetryDeliverer{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Deliver attempts the delivery, retrying on transient errors.
func (d *RetryDeliverer) Deliver(ctx context.Context, env *webhook.Envelope) (webhook.DeliveryResult, error) {
	res, err := d.inner.Deliver(ctx, env)
	if err == nil {
		return res, nil
	}

	if !isRetryable(err) {
		return res, err
	}

	lastRes, lastErr := res, err
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		delay := d.backoffDelay(attempt, lastErr)

		d.logger.Warn("retrying delivery after transient error",
			"request_id", env.RequestID,
			"attempt", attempt,
			"max_retries", d.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return lastRes, fmt.Errorf("delivery retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		res, err = d.inner.Deliver(ctx, env)
		if err == nil {
			return res, nil
		}

		if !isRetryable(err) {
			return res, err
		}
		lastRes, lastErr = res, err
	}

	return lastRes, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (d *RetryDeliverer) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := d.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests — retryable.
		if httpErr.StatusCode == 429 {
			return true
		}
		// 5xx — retryable.
		if httpErr.StatusCode >= 500 {
			return true
		}
		// 4xx (not 429) — not retryable.
		return false
	}

	// Non-HTTP errors (network, DNS, etc.) — retryable.
	return true
}
