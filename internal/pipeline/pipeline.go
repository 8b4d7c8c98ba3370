package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anvers/jobrelay/internal/fetch"
	"github.com/anvers/jobrelay/internal/history"
	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/webhook"
)

// RunSummary aggregates the outcome of one full synchronization run.
type RunSummary struct {
	RequestID  string
	Source     model.JobSource
	Method     string
	JobCount   int
	Success    bool
	Delivered  bool
	StatusCode int
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Driver composes one synchronization run: fetch → sign → deliver → record.
// It is stateless across invocations; all per-run state is local to Run.
type Driver struct {
	orchestrator *fetch.Orchestrator
	deliverer    webhook.Deliverer
	store        history.Store
	companyID    string
	secret       string
	logger       *slog.Logger
}

// NewDriver wires a driver with all its collaborators.
func NewDriver(
	orchestrator *fetch.Orchestrator,
	deliverer webhook.Deliverer,
	store history.Store,
	companyID string,
	secret string,
	logger *slog.Logger,
) *Driver {
	return &Driver{
		orchestrator: orchestrator,
		deliverer:    deliverer,
		store:        store,
		companyID:    companyID,
		secret:       secret,
		logger:       logger,
	}
}

// Run executes one synchronization run. A failed or empty fetch short-circuits
// delivery so a spurious zero-job sync never overwrites downstream state.
// A signing failure is the only condition reported as a Go error: a payload
// that cannot be signed must not be delivered unsigned.
func (d *Driver) Run(ctx context.Context, source model.JobSource) (RunSummary, error) {
	started := time.Now()

	result := d.orchestrator.Fetch(ctx, source, d.companyID)

	summary := RunSummary{
		Source:    source,
		Method:    result.Method,
		JobCount:  result.TotalCount,
		Success:   result.Success,
		Error:     result.Message,
		StartedAt: started,
	}

	if !result.Success || result.TotalCount == 0 {
		summary.Duration = time.Since(started)
		d.logger.Warn("skipping delivery",
			"method", result.Method,
			"jobs", result.TotalCount,
			"fetch_success", result.Success,
		)
		d.record(summary)
		return summary, nil
	}

	env, err := webhook.BuildEnvelope(result.Jobs, source, d.secret)
	if err != nil {
		summary.Duration = time.Since(started)
		summary.Success = false
		summary.Error = err.Error()
		d.record(summary)
		return summary, fmt.Errorf("building signed payload: %w", err)
	}
	summary.RequestID = env.RequestID

	delivery, err := d.deliverer.Deliver(ctx, env)
	summary.Delivered = delivery.Success
	summary.StatusCode = delivery.StatusCode
	summary.Duration = time.Since(started)
	if err != nil {
		summary.Error = err.Error()
		d.logger.Error("delivery failed",
			"request_id", env.RequestID,
			"status", delivery.StatusCode,
			"error", err,
		)
	} else {
		d.logger.Info("sync run complete",
			"request_id", env.RequestID,
			"method", summary.Method,
			"jobs", summary.JobCount,
			"status", delivery.StatusCode,
			"duration", summary.Duration.String(),
		)
	}

	d.record(summary)
	return summary, nil
}

// record persists the run summary. History failures are logged, never fatal:
// the run outcome already stands on its own.
func (d *Driver) record(summary RunSummary) {
	run := history.Run{
		RunID:      summary.RequestID,
		Source:     summary.Source,
		Method:     summary.Method,
		JobCount:   summary.JobCount,
		Success:    summary.Success,
		Delivered:  summary.Delivered,
		StatusCode: summary.StatusCode,
		Error:      summary.Error,
		StartedAt:  summary.StartedAt,
		Duration:   summary.Duration,
	}
	if run.RunID == "" {
		// No envelope was built; key the history row on the start time.
		run.RunID = fmt.Sprintf("fetch-%d", summary.StartedAt.UnixNano())
	}
	if err := d.store.Record(run); err != nil {
		d.logger.Error("recording run history failed", "error", err)
	}
}
