package model

import (
	"context"
	"net/http"
	"time"
)

// JobSource identifies what triggered a sync run.
type JobSource string

const (
	SourceWebhook   JobSource = "webhook"
	SourceManual    JobSource = "manual"
	SourceScheduled JobSource = "scheduled"
)

// UnknownCompany is the sentinel company ID used when none is configured.
const UnknownCompany = "unknown"

// RawJobRecord is the strategy-specific shape of a single job listing before
// normalization. Keys vary by acquisition method; only the normalizer reads it.
type RawJobRecord map[string]any

// NormalizedJob is the canonical representation of a job listing, independent
// of which strategy produced it.
type NormalizedJob struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Department     string       `json:"department,omitempty"`
	Location       string       `json:"location,omitempty"`
	EmploymentType string       `json:"employmentType,omitempty"`
	Description    string       `json:"description,omitempty"`
	PostedAt       string       `json:"postedAt,omitempty"` // ISO-8601
	ApplyURL       string       `json:"applyUrl"`
	Source         JobSource    `json:"source"`
	Raw            RawJobRecord `json:"raw,omitempty"` // retained for audit
	ProcessedAt    string       `json:"processedAt"`   // ISO-8601, set by the normalizer
}

// FetchContext is the per-run metadata fixed before any strategy executes, so
// timing and identifiers are comparable across strategy attempts. Immutable
// after creation; lives for exactly one orchestrator invocation.
type FetchContext struct {
	Start     time.Time // monotonic clock reading
	FetchedAt string    // ISO-8601
	RunID     string
	Source    JobSource
	CompanyID string
}

// FetchResult is the terminal value of one orchestrator invocation.
// Method is "none" when every strategy was inapplicable or failed.
type FetchResult struct {
	Jobs       []NormalizedJob
	Method     string
	Success    bool
	Message    string
	FetchedAt  string
	TotalCount int
}

// Doer is the narrow HTTP transport the strategies and the delivery client
// depend on instead of a concrete *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchStrategy is one acquisition method for raw job data. CanHandle must be
// cheap and synchronous; FetchJobs may fail with any error to signal
// unavailability, which triggers fallback to the next strategy.
type FetchStrategy interface {
	Name() string
	CanHandle() bool
	FetchJobs(ctx context.Context, doer Doer) ([]RawJobRecord, error)
}
