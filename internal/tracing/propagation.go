package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToCommand derives a context for a single queued command.
// It keeps the trace and run IDs but assigns a fresh command ID.
func PropagateToCommand(ctx context.Context) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}

	newCtx := WithTraceID(ctx, traceID)
	newCtx = WithCommandID(newCtx, NewCommandID())

	return newCtx
}

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.RunID != "" {
		logger = logger.With().Str("run_id", tc.RunID).Logger()
	}
	if tc.CommandID != "" {
		logger = logger.With().Str("command_id", tc.CommandID).Logger()
	}
	if tc.ScenarioID != "" {
		logger = logger.With().Str("scenario_id", tc.ScenarioID).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext merges tracing information from source context into target context
// Useful when you need to combine contexts from different sources
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)

	if tc.TraceID != "" && GetTraceID(target) == "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if tc.RunID != "" && GetRunID(target) == "" {
		target = WithRunID(target, tc.RunID)
	}
	if tc.CommandID != "" && GetCommandID(target) == "" {
		target = WithCommandID(target, tc.CommandID)
	}
	if tc.ScenarioID != "" && GetScenarioID(target) == "" {
		target = WithScenarioID(target, tc.ScenarioID)
	}

	return target
}

// CloneContext copies tracing information onto a fresh background context,
// keeping correlation IDs while detaching from the caller's cancellation.
func CloneContext(ctx context.Context) context.Context {
	tc := FromContext(ctx)
	return NewContext(context.Background(), tc)
}
