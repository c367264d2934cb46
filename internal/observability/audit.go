package observability

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AuditEvent is one line of the audit trail: who asked the daemon to do
// what, and how it went.
type AuditEvent struct {
	Type      string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor,omitempty"` // gateway client ID or "cli"
	Action    string                 `json:"action"`          // e.g., "execute:click", "run:checkout-smoke"
	Status    string                 `json:"status"`          // "success", "failure", "pending"
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// AuditLogger appends audit events to a JSON log file. Every event is also
// attached to the active otel span when one exists, so the audit trail and
// the trace view tell the same story.
type AuditLogger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	file   *os.File
}

var (
	auditMu   sync.Mutex
	auditInst *AuditLogger
)

// InitAuditLogger points the global audit logger at a file. Call before any
// Record; records made earlier went to stderr.
func InitAuditLogger(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	auditMu.Lock()
	auditInst = &AuditLogger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}
	auditMu.Unlock()
	return nil
}

// GetAuditLogger returns the global audit logger, falling back to a
// stderr-backed one when InitAuditLogger was never called.
func GetAuditLogger() *AuditLogger {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditInst == nil {
		auditInst = &AuditLogger{
			logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
		}
	}
	return auditInst
}

// Record appends one event. A zero timestamp is stamped now; the trace ID
// comes from the context's span when present.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()
		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.actor", event.Actor),
		))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("type", event.Type).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("status", event.Status).
		Str("trace_id", event.TraceID)
	if event.Metadata != nil {
		entry.Interface("metadata", event.Metadata)
	}
	entry.Msg("")
}

// Close releases the log file, if one was opened.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// RecordActionAudit records one action execution requested by a remote
// caller or the CLI.
func RecordActionAudit(ctx context.Context, actionName, actor, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "action",
		Actor:    actor,
		Action:   "execute:" + actionName,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordScenarioAudit records a whole scenario run request.
func RecordScenarioAudit(ctx context.Context, scenarioName, actor, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "scenario",
		Actor:    actor,
		Action:   "run:" + scenarioName,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordSecurityAudit records authentication and policy decisions.
func RecordSecurityAudit(ctx context.Context, action, actor, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "security",
		Actor:    actor,
		Action:   action,
		Status:   status,
		Metadata: metadata,
	})
}
