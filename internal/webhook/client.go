package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anvers/jobrelay/internal/model"
)

// DeliveryResult is the terminal outcome of one delivery attempt, surfaced to
// the pipeline driver rather than retried here.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	RequestID  string
}

// Deliverer performs the HTTP delivery of a signed envelope. The retry
// decorator wraps this interface so the core client stays retry-free.
type Deliverer interface {
	Deliver(ctx context.Context, env *Envelope) (DeliveryResult, error)
}

// Ensure Client implements Deliverer.
var _ Deliverer = (*Client)(nil)

// Client posts signed envelopes to the downstream webhook. It never retries;
// retry policy belongs to the decorator wired around it.
type Client struct {
	url    string
	doer   model.Doer
	logger *slog.Logger
}

// NewClient returns a delivery client for the given webhook URL.
func NewClient(url string, doer model.Doer, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		doer:   doer,
		logger: logger,
	}
}

// Deliver sends the envelope's exact signed bytes. Non-2xx responses are
// returned as *model.HTTPError so the retry layer can classify them; the
// envelope itself is never re-serialized or re-signed.
func (c *Client) Deliver(ctx context.Context, env *Envelope) (DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(env.Body))
	if err != nil {
		return DeliveryResult{RequestID: env.RequestID}, fmt.Errorf("building delivery request: %w", err)
	}
	for k, v := range env.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return DeliveryResult{RequestID: env.RequestID}, fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return DeliveryResult{StatusCode: resp.StatusCode, RequestID: env.RequestID}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("webhook rejected delivery: %s", strings.TrimSpace(string(body))),
		}
	}

	c.logger.Info("webhook delivered",
		"request_id", env.RequestID,
		"status", resp.StatusCode,
		"bytes", len(env.Body),
	)

	return DeliveryResult{Success: true, StatusCode: resp.StatusCode, RequestID: env.RequestID}, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
