package scenario

import "time"

// EventType labels the lifecycle events a run emits.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunFinished  EventType = "run.finished"
	EventStepStarted  EventType = "step.started"
	EventStepFinished EventType = "step.finished"
)

// Run and step statuses as they appear in events, results and history.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Event is one lifecycle notification of a scenario run. Step fields are
// zero on run-level events.
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	Scenario   string    `json:"scenario"`
	StepIndex  int       `json:"step_index"`
	Action     string    `json:"action,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Time       time.Time `json:"time"`
}

// EventSink receives run lifecycle events. Implementations must not block:
// the runner calls sinks inline between steps.
type EventSink interface {
	ScenarioEvent(event Event)
}
