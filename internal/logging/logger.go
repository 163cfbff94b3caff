// Package logging provides the run logger shared by every pipeline stage:
// a slog.Logger wrapper that also accumulates the monotonic-offset, human
// readable log lines the orchestrator attaches to AuditReport.Logs.
package logging

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunLogger records structured log lines via slog, tagged with a run_id
// attribute, and plain "+Δms LEVEL message" lines for the report envelope.
// The plain lines carry neither the run ID nor the structured args.
type RunLogger struct {
	slog  *slog.Logger
	runID string
	start time.Time

	mu    sync.Mutex
	lines []string
}

// New creates a RunLogger bound to runID, logging structured records through
// base and collecting human-readable offset lines for the report.
func New(base *slog.Logger, runID string) *RunLogger {
	return &RunLogger{
		slog:  base.With("run_id", runID),
		runID: runID,
		start: time.Now(),
	}
}

func (l *RunLogger) offset() time.Duration {
	return time.Since(l.start)
}

func (l *RunLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	line := fmt.Sprintf("+%dms %s %s", l.offset().Milliseconds(), level, msg)
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

// Info logs an informational event.
func (l *RunLogger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
	l.record("INFO", msg, args...)
}

// Warn logs a recoverable problem.
func (l *RunLogger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
	l.record("WARN", msg, args...)
}

// Error logs an unrecoverable-for-this-stage problem; the pipeline itself
// continues per the partial-failure policy in SPEC_FULL.md §7.
func (l *RunLogger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
	l.record("ERROR", msg, args...)
}

// Lines returns a snapshot of the collected report log lines, in order.
func (l *RunLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// RunID returns the bound run identifier.
func (l *RunLogger) RunID() string {
	return l.runID
}
