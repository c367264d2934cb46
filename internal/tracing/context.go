package tracing

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// RunIDKey is the context key for scenario run ID
	RunIDKey ContextKey = "run_id"
	// CommandIDKey is the context key for queued command ID
	CommandIDKey ContextKey = "command_id"
	// ScenarioIDKey is the context key for scenario ID
	ScenarioIDKey ContextKey = "scenario_id"
	// RequestIDKey is the context key for request ID (for idempotency)
	RequestIDKey ContextKey = "request_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID    string
	RunID      string
	CommandID  string
	ScenarioID string
	RequestID  string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.New().String()
}

// NewCommandID generates a new command ID. Command IDs are short nanoids
// rather than UUIDs because they appear on every queued-command log line.
func NewCommandID() string {
	id, _ := gonanoid.New()
	return id
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithCommandID adds a command ID to the context
func WithCommandID(ctx context.Context, commandID string) context.Context {
	return context.WithValue(ctx, CommandIDKey, commandID)
}

// WithScenarioID adds a scenario ID to the context
func WithScenarioID(ctx context.Context, scenarioID string) context.Context {
	return context.WithValue(ctx, ScenarioIDKey, scenarioID)
}

// WithRequestID adds a request ID to the context for idempotency
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetRunID retrieves the run ID from the context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetCommandID retrieves the command ID from the context
func GetCommandID(ctx context.Context) string {
	if commandID, ok := ctx.Value(CommandIDKey).(string); ok {
		return commandID
	}
	return ""
}

// GetScenarioID retrieves the scenario ID from the context
func GetScenarioID(ctx context.Context) string {
	if scenarioID, ok := ctx.Value(ScenarioIDKey).(string); ok {
		return scenarioID
	}
	return ""
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:    GetTraceID(ctx),
		RunID:      GetRunID(ctx),
		CommandID:  GetCommandID(ctx),
		ScenarioID: GetScenarioID(ctx),
		RequestID:  GetRequestID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.RunID != "" {
		ctx = WithRunID(ctx, tc.RunID)
	}
	if tc.CommandID != "" {
		ctx = WithCommandID(ctx, tc.CommandID)
	}
	if tc.ScenarioID != "" {
		ctx = WithScenarioID(ctx, tc.ScenarioID)
	}
	if tc.RequestID != "" {
		ctx = WithRequestID(ctx, tc.RequestID)
	}
	return ctx
}

// NewRequestContext creates a new context for a request with a new trace ID
func NewRequestContext(ctx context.Context) context.Context {
	traceID := NewTraceID()
	return WithTraceID(ctx, traceID)
}

// NewScenarioRunContext creates a new context for a scenario run with a new run ID
func NewScenarioRunContext(ctx context.Context, scenarioID string) context.Context {
	runID := NewRunID()
	ctx = WithRunID(ctx, runID)
	ctx = WithScenarioID(ctx, scenarioID)
	return ctx
}
