package telemetry

import (
	"log/slog"
	"time"
)

// Span is a lightweight attribute bag for one traced operation. Callers may
// pass a nil span; implementations must tolerate it.
type Span struct {
	Name       string
	Attributes map[string]string
}

// NewSpan returns an empty span with the given name.
func NewSpan(name string) *Span {
	return &Span{Name: name, Attributes: make(map[string]string)}
}

// Telemetry records operation metrics and span attributes. The orchestrator's
// control flow is identical whether a real or no-op implementation is wired.
type Telemetry interface {
	RecordMetrics(runID, operation, outcome string, elapsed time.Duration, attrs map[string]string)
	SetSpanAttributes(span *Span, attrs map[string]string)
}

// Ensure implementations satisfy Telemetry.
var (
	_ Telemetry = (*Nop)(nil)
	_ Telemetry = (*Log)(nil)
)

// Nop discards all telemetry. Used when observability is disabled.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (n *Nop) RecordMetrics(string, string, string, time.Duration, map[string]string) {}
func (n *Nop) SetSpanAttributes(*Span, map[string]string)                             {}

// Log emits metrics as structured log records.
type Log struct {
	logger *slog.Logger
}

// NewLog returns telemetry that writes to the given logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// RecordMetrics logs one metric record with its attributes flattened.
func (l *Log) RecordMetrics(runID, operation, outcome string, elapsed time.Duration, attrs map[string]string) {
	args := []any{"run_id", runID, "operation", operation, "outcome", outcome, "duration_ms", elapsed.Milliseconds()}
	for k, v := range attrs {
		args = append(args, k, v)
	}
	l.logger.Info("metric", args...)
}

// SetSpanAttributes merges attrs into the span. Safe with a nil span.
func (l *Log) SetSpanAttributes(span *Span, attrs map[string]string) {
	if span == nil {
		return
	}
	if span.Attributes == nil {
		span.Attributes = make(map[string]string)
	}
	for k, v := range attrs {
		span.Attributes[k] = v
	}
}
