package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/normalize"
	"github.com/anvers/jobrelay/internal/telemetry"
)

// ErrAllStrategiesFailed is the message reported when no strategy produced jobs.
const ErrAllStrategiesFailed = "All fetch strategies failed"

// MethodNone is the sentinel strategy name for a total fetch failure.
const MethodNone = "none"

// Orchestrator runs the strategy fallback chain exactly once per invocation.
// Strategies are tried strictly in the supplied order; the first applicable
// strategy that fetches and normalizes successfully wins, and no later
// strategy runs. A failing strategy never aborts the operation, it only
// passes control to the next one.
type Orchestrator struct {
	strategies []model.FetchStrategy
	doer       model.Doer
	telemetry  telemetry.Telemetry
	timeout    time.Duration // per-strategy budget
	logger     *slog.Logger
}

// New creates an orchestrator. telem may be nil, in which case a no-op
// implementation is used so the control flow never branches on "is telemetry
// enabled". timeout bounds each individual strategy attempt; a strategy that
// exceeds it fails like any other and triggers fallback.
func New(strategies []model.FetchStrategy, doer model.Doer, telem telemetry.Telemetry, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if telem == nil {
		telem = telemetry.NewNop()
	}
	return &Orchestrator{
		strategies: strategies,
		doer:       doer,
		telemetry:  telem,
		timeout:    timeout,
		logger:     logger,
	}
}

// Fetch runs the fallback chain and returns a deterministic result. It never
// returns a Go error for strategy failures; a total failure is reported as a
// structured FetchResult with Method "none".
func (o *Orchestrator) Fetch(ctx context.Context, source model.JobSource, companyID string) model.FetchResult {
	if companyID == "" {
		companyID = model.UnknownCompany
	}

	// Fixed before any strategy runs so timings are comparable across attempts.
	fctx := model.FetchContext{
		Start:     time.Now(),
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
		RunID:     uuid.NewString(),
		Source:    source,
		CompanyID: companyID,
	}

	span := telemetry.NewSpan("fetch_jobs")
	attempted := 0

	for _, strat := range o.strategies {
		if !strat.CanHandle() {
			continue
		}
		attempted++

		jobs, err := o.attempt(ctx, strat, fctx)
		if err != nil {
			o.logger.Warn("fetch strategy failed",
				"run_id", fctx.RunID,
				"strategy", strat.Name(),
				"error", err,
			)
			o.telemetry.SetSpanAttributes(span, map[string]string{
				"strategy." + strat.Name() + ".outcome": "failure",
				"strategy." + strat.Name() + ".error":   err.Error(),
			})
			continue
		}

		elapsed := time.Since(fctx.Start)
		o.telemetry.RecordMetrics(fctx.RunID, "fetch_jobs", "success", elapsed, map[string]string{
			"strategy":   strat.Name(),
			"job_count":  strconv.Itoa(len(jobs)),
			"company_id": fctx.CompanyID,
		})
		o.telemetry.SetSpanAttributes(span, map[string]string{
			"strategy": strat.Name(),
			"outcome":  "success",
		})
		o.logger.Info("fetch succeeded",
			"run_id", fctx.RunID,
			"strategy", strat.Name(),
			"jobs", len(jobs),
			"elapsed", elapsed.String(),
		)

		return model.FetchResult{
			Jobs:       jobs,
			Method:     strat.Name(),
			Success:    true,
			FetchedAt:  fctx.FetchedAt,
			TotalCount: len(jobs),
		}
	}

	o.telemetry.RecordMetrics(fctx.RunID, "fetch_jobs", "failure", time.Since(fctx.Start), map[string]string{
		"strategies_attempted": strconv.Itoa(attempted),
		"company_id":           fctx.CompanyID,
	})
	o.logger.Error("all fetch strategies exhausted",
		"run_id", fctx.RunID,
		"attempted", attempted,
	)

	return model.FetchResult{
		Jobs:       []model.NormalizedJob{},
		Method:     MethodNone,
		Success:    false,
		Message:    ErrAllStrategiesFailed,
		FetchedAt:  fctx.FetchedAt,
		TotalCount: 0,
	}
}

// attempt runs one strategy inside the orchestration's error boundary: fetch,
// then normalize, under the per-strategy timeout. A panic in a strategy is
// converted to an ordinary failure so the chain keeps going.
func (o *Orchestrator) attempt(ctx context.Context, strat model.FetchStrategy, fctx model.FetchContext) (jobs []model.NormalizedJob, err error) {
	defer func() {
		if r := recover(); r != nil {
			jobs, err = nil, fmt.Errorf("strategy %s panicked: %v", strat.Name(), r)
		}
	}()

	attemptCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	raws, err := strat.FetchJobs(attemptCtx, o.doer)
	if err != nil {
		return nil, fmt.Errorf("fetching via %s: %w", strat.Name(), err)
	}

	return normalize.NormalizeJobs(raws, fctx.Source), nil
}
