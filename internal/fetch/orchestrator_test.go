package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/telemetry"
)

// --- Mock/Fake Implementations ---

// MockStrategy counts its invocations and returns canned raw jobs or an error.
type MockStrategy struct {
	name     string
	handles  bool
	raws     []model.RawJobRecord
	err      error
	sleep    time.Duration
	attempts int
}

func (m *MockStrategy) Name() string    { return m.name }
func (m *MockStrategy) CanHandle() bool { return m.handles }

func (m *MockStrategy) FetchJobs(ctx context.Context, _ model.Doer) ([]model.RawJobRecord, error) {
	m.attempts++
	if m.sleep > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.sleep):
		}
	}
	return m.raws, m.err
}

// RecordingTelemetry captures metric calls for assertions.
type RecordingTelemetry struct {
	Metrics []MetricCall
}

type MetricCall struct {
	RunID     string
	Operation string
	Outcome   string
	Attrs     map[string]string
}

func (r *RecordingTelemetry) RecordMetrics(runID, operation, outcome string, _ time.Duration, attrs map[string]string) {
	r.Metrics = append(r.Metrics, MetricCall{RunID: runID, Operation: operation, Outcome: outcome, Attrs: attrs})
}

func (r *RecordingTelemetry) SetSpanAttributes(_ *telemetry.Span, _ map[string]string) {}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeRaws(ids ...string) []model.RawJobRecord {
	raws := make([]model.RawJobRecord, len(ids))
	for i, id := range ids {
		raws[i] = model.RawJobRecord{
			"id":    id,
			"title": "Software Engineer",
			"url":   "https://example.com/" + id,
		}
	}
	return raws
}

func newOrchestrator(strategies []model.FetchStrategy, timeout time.Duration) *Orchestrator {
	return New(strategies, http.DefaultClient, nil, timeout, discardLogger())
}

// --- Tests ---

func TestFetch_FirstSuccessWins(t *testing.T) {
	first := &MockStrategy{name: "public-api", handles: true, raws: makeRaws("1", "2")}
	second := &MockStrategy{name: "page-scrape", handles: true, raws: makeRaws("3")}

	o := newOrchestrator([]model.FetchStrategy{first, second}, 0)
	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if !res.Success {
		t.Fatal("expected success")
	}
	if res.Method != "public-api" {
		t.Errorf("Method = %q, want public-api", res.Method)
	}
	if res.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", res.TotalCount)
	}
	if second.attempts != 0 {
		t.Errorf("second strategy was invoked %d times, want 0", second.attempts)
	}
}

func TestFetch_SkipsInapplicableWithoutAttempt(t *testing.T) {
	skipped := &MockStrategy{name: "auth-api", handles: false}
	winner := &MockStrategy{name: "public-api", handles: true, raws: makeRaws("1")}

	o := newOrchestrator([]model.FetchStrategy{skipped, winner}, 0)
	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if res.Method != "public-api" {
		t.Errorf("Method = %q, want public-api", res.Method)
	}
	if skipped.attempts != 0 {
		t.Errorf("inapplicable strategy was invoked %d times, want 0", skipped.attempts)
	}
}

func TestFetch_FallbackChainScenario(t *testing.T) {
	// API inapplicable, AuthAPI throws, Scrape returns 2 raw jobs.
	api := &MockStrategy{name: "public-api", handles: false}
	authAPI := &MockStrategy{name: "auth-api", handles: true, err: errors.New("401 unauthorized")}
	scrape := &MockStrategy{name: "page-scrape", handles: true, raws: makeRaws("1", "2")}

	o := newOrchestrator([]model.FetchStrategy{api, authAPI, scrape}, 0)
	res := o.Fetch(context.Background(), model.SourceScheduled, "co-1")

	if !res.Success {
		t.Fatal("expected success via fallback")
	}
	if res.Method != "page-scrape" {
		t.Errorf("Method = %q, want page-scrape", res.Method)
	}
	if res.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", res.TotalCount)
	}
	if authAPI.attempts != 1 {
		t.Errorf("auth-api attempts = %d, want 1", authAPI.attempts)
	}
}

func TestFetch_AllFail(t *testing.T) {
	a := &MockStrategy{name: "a", handles: true, err: errors.New("down")}
	b := &MockStrategy{name: "b", handles: true, err: errors.New("also down")}

	o := newOrchestrator([]model.FetchStrategy{a, b}, 0)
	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Method != MethodNone {
		t.Errorf("Method = %q, want %q", res.Method, MethodNone)
	}
	if res.Message != ErrAllStrategiesFailed {
		t.Errorf("Message = %q, want %q", res.Message, ErrAllStrategiesFailed)
	}
	if res.TotalCount != 0 || len(res.Jobs) != 0 {
		t.Errorf("expected empty result, got %d jobs", len(res.Jobs))
	}
}

func TestFetch_ZeroStrategies(t *testing.T) {
	telem := &RecordingTelemetry{}
	o := New(nil, http.DefaultClient, telem, 0, discardLogger())

	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if res.Success || res.Method != MethodNone {
		t.Fatalf("expected total-failure shape, got %+v", res)
	}
	if len(telem.Metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(telem.Metrics))
	}
	m := telem.Metrics[0]
	if m.Outcome != "failure" {
		t.Errorf("Outcome = %q, want failure", m.Outcome)
	}
	if m.Attrs["strategies_attempted"] != "0" {
		t.Errorf("strategies_attempted = %q, want 0", m.Attrs["strategies_attempted"])
	}
}

func TestFetch_CompanyIDFallback(t *testing.T) {
	telem := &RecordingTelemetry{}
	winner := &MockStrategy{name: "public-api", handles: true, raws: makeRaws("1")}

	o := New([]model.FetchStrategy{winner}, http.DefaultClient, telem, 0, discardLogger())
	o.Fetch(context.Background(), model.SourceManual, "")

	if len(telem.Metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(telem.Metrics))
	}
	if got := telem.Metrics[0].Attrs["company_id"]; got != model.UnknownCompany {
		t.Errorf("company_id = %q, want %q", got, model.UnknownCompany)
	}
}

func TestFetch_TimeoutTriggersFallback(t *testing.T) {
	slow := &MockStrategy{name: "slow", handles: true, sleep: 200 * time.Millisecond, raws: makeRaws("x")}
	fast := &MockStrategy{name: "fast", handles: true, raws: makeRaws("1")}

	o := newOrchestrator([]model.FetchStrategy{slow, fast}, 20*time.Millisecond)
	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if !res.Success {
		t.Fatal("expected fallback success after timeout")
	}
	if res.Method != "fast" {
		t.Errorf("Method = %q, want fast", res.Method)
	}
}

func TestFetch_NormalizationFilterApplies(t *testing.T) {
	// One well-formed record, one missing a title: result carries only the good one.
	raws := makeRaws("good")
	raws = append(raws, model.RawJobRecord{"id": "bad", "url": "https://example.com/bad"})
	strat := &MockStrategy{name: "public-api", handles: true, raws: raws}

	o := newOrchestrator([]model.FetchStrategy{strat}, 0)
	res := o.Fetch(context.Background(), model.SourceManual, "co-1")

	if res.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1", res.TotalCount)
	}
	if res.Jobs[0].ID != "good" {
		t.Errorf("surviving job = %q, want good", res.Jobs[0].ID)
	}
}
