package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewCommandID(t *testing.T) {
	id1 := NewCommandID()
	id2 := NewCommandID()

	if id1 == "" {
		t.Error("NewCommandID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewCommandID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := context.Background()
	traceID := "test-trace-id"

	ctx = WithTraceID(ctx, traceID)

	retrieved := GetTraceID(ctx)
	if retrieved != traceID {
		t.Errorf("Expected trace ID %s, got %s", traceID, retrieved)
	}
}

func TestWithRunID(t *testing.T) {
	ctx := context.Background()
	runID := "test-run-id"

	ctx = WithRunID(ctx, runID)

	retrieved := GetRunID(ctx)
	if retrieved != runID {
		t.Errorf("Expected run ID %s, got %s", runID, retrieved)
	}
}

func TestWithCommandID(t *testing.T) {
	ctx := context.Background()
	commandID := "test-command"

	ctx = WithCommandID(ctx, commandID)

	retrieved := GetCommandID(ctx)
	if retrieved != commandID {
		t.Errorf("Expected command ID %s, got %s", commandID, retrieved)
	}
}

func TestWithScenarioID(t *testing.T) {
	ctx := context.Background()
	scenarioID := "login-flow"

	ctx = WithScenarioID(ctx, scenarioID)

	retrieved := GetScenarioID(ctx)
	if retrieved != scenarioID {
		t.Errorf("Expected scenario ID %s, got %s", scenarioID, retrieved)
	}
}

func TestGetTraceIDEmpty(t *testing.T) {
	ctx := context.Background()

	traceID := GetTraceID(ctx)
	if traceID != "" {
		t.Errorf("Expected empty trace ID, got %s", traceID)
	}
}

func TestGetCommandIDEmpty(t *testing.T) {
	ctx := context.Background()

	commandID := GetCommandID(ctx)
	if commandID != "" {
		t.Errorf("Expected empty command ID, got %s", commandID)
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithRunID(ctx, "run-456")
	ctx = WithCommandID(ctx, "cmd-789")
	ctx = WithScenarioID(ctx, "checkout")

	tc := FromContext(ctx)

	if tc.TraceID != "trace-123" {
		t.Errorf("Expected trace ID trace-123, got %s", tc.TraceID)
	}
	if tc.RunID != "run-456" {
		t.Errorf("Expected run ID run-456, got %s", tc.RunID)
	}
	if tc.CommandID != "cmd-789" {
		t.Errorf("Expected command ID cmd-789, got %s", tc.CommandID)
	}
	if tc.ScenarioID != "checkout" {
		t.Errorf("Expected scenario ID checkout, got %s", tc.ScenarioID)
	}
}

func TestNewContext(t *testing.T) {
	ctx := context.Background()

	tc := &TraceContext{
		TraceID:    "trace-123",
		RunID:      "run-456",
		CommandID:  "cmd-789",
		ScenarioID: "checkout",
	}

	ctx = NewContext(ctx, tc)

	if GetTraceID(ctx) != "trace-123" {
		t.Error("Trace ID not set correctly")
	}
	if GetRunID(ctx) != "run-456" {
		t.Error("Run ID not set correctly")
	}
	if GetCommandID(ctx) != "cmd-789" {
		t.Error("Command ID not set correctly")
	}
	if GetScenarioID(ctx) != "checkout" {
		t.Error("Scenario ID not set correctly")
	}
}

func TestNewContextPartial(t *testing.T) {
	ctx := context.Background()

	tc := &TraceContext{
		TraceID: "trace-123",
		// Other fields empty
	}

	ctx = NewContext(ctx, tc)

	if GetTraceID(ctx) != "trace-123" {
		t.Error("Trace ID not set correctly")
	}
	if GetRunID(ctx) != "" {
		t.Error("Run ID should be empty")
	}
	if GetCommandID(ctx) != "" {
		t.Error("Command ID should be empty")
	}
	if GetScenarioID(ctx) != "" {
		t.Error("Scenario ID should be empty")
	}
}

func TestNewRequestContext(t *testing.T) {
	ctx := context.Background()

	ctx = NewRequestContext(ctx)

	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Error("Trace ID not generated")
	}

	// Verify it's a valid UUID format
	if len(traceID) != 36 {
		t.Errorf("Expected UUID format (36 chars), got %d chars", len(traceID))
	}
}

func TestNewScenarioRunContext(t *testing.T) {
	ctx := context.Background()
	scenarioID := "login-flow"

	ctx = NewScenarioRunContext(ctx, scenarioID)

	runID := GetRunID(ctx)
	if runID == "" {
		t.Error("Run ID not generated")
	}

	retrievedScenarioID := GetScenarioID(ctx)
	if retrievedScenarioID != scenarioID {
		t.Errorf("Expected scenario ID %s, got %s", scenarioID, retrievedScenarioID)
	}

	// Verify it's a valid UUID format
	if len(runID) != 36 {
		t.Errorf("Expected UUID format (36 chars), got %d chars", len(runID))
	}
}
