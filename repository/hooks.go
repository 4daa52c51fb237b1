package repository

import (
	"context"
	"log/slog"
	"time"
)

// Audit actions reported to the hook.
const (
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionForceDelete = "force_delete"
)

// Monitor outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// AuditEvent describes one completed mutation. Before is nil on create,
// After is nil on hard deletes.
type AuditEvent struct {
	Namespace string
	Action    string
	RecordID  string
	ActorID   string
	Before    any
	After     any
}

// AuditHook receives mutation events after the write succeeded. The call is
// fire-and-forget from the engine's point of view: a returned error produces
// a log line and nothing else, it never fails the data operation.
type AuditHook interface {
	RecordEvent(ctx context.Context, event AuditEvent) error
}

// QueryStats describes one repository operation for performance monitoring.
type QueryStats struct {
	Namespace     string
	Operation     string
	CorrelationID string
	Outcome       string
	Duration      time.Duration
	Filters       map[string]any
}

// QueryMonitor observes operation timings. Monitoring is advisory; the
// engine ignores whatever the implementation does with the stats.
type QueryMonitor interface {
	ObserveQuery(ctx context.Context, stats QueryStats)
}

// NopAuditHook discards events.
type NopAuditHook struct{}

func (NopAuditHook) RecordEvent(context.Context, AuditEvent) error { return nil }

// NopQueryMonitor discards stats.
type NopQueryMonitor struct{}

func (NopQueryMonitor) ObserveQuery(context.Context, QueryStats) {}

// SlogAuditHook writes audit events to a structured logger. It is the
// default sink when no external audit collaborator is wired in.
type SlogAuditHook struct {
	Logger *slog.Logger
}

func (h SlogAuditHook) RecordEvent(ctx context.Context, event AuditEvent) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "audit event",
		"namespace", event.Namespace,
		"action", event.Action,
		"record_id", event.RecordID,
		"actor_id", event.ActorID,
	)
	return nil
}

// SlogQueryMonitor logs failed operations and operations slower than
// Threshold (200ms when unset).
type SlogQueryMonitor struct {
	Logger    *slog.Logger
	Threshold time.Duration
}

func (m SlogQueryMonitor) ObserveQuery(ctx context.Context, stats QueryStats) {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	if stats.Outcome == OutcomeOK && stats.Duration < threshold {
		return
	}

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"namespace", stats.Namespace,
		"operation", stats.Operation,
		"outcome", stats.Outcome,
		"duration_ms", stats.Duration.Milliseconds(),
	}
	if stats.CorrelationID != "" {
		attrs = append(attrs, "correlation_id", stats.CorrelationID)
	}
	logger.WarnContext(ctx, "slow or failed query", attrs...)
}
