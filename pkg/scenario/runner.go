package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/actions"
)

const tracerName = "rudder.scenario"

// StepResult records the outcome of one executed step.
type StepResult struct {
	Index      int    `json:"index"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RunResult records the outcome of a whole run. Steps holds one entry per
// step that executed; steps after a halting failure never appear.
type RunResult struct {
	RunID    string       `json:"run_id"`
	Scenario string       `json:"scenario"`
	Status   string       `json:"status"`
	Error    string       `json:"error,omitempty"`
	Steps    []StepResult `json:"steps"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// Runner executes scenarios through one action runner. All runs of one
// Runner share the action runner's state and session.
type Runner struct {
	actions *actions.Runner
	logger  zerolog.Logger
	sinks   []EventSink
}

// NewRunner creates a scenario runner. Sinks receive the lifecycle events of
// every run.
func NewRunner(actionRunner *actions.Runner, sinks ...EventSink) *Runner {
	return &Runner{
		actions: actionRunner,
		logger:  log.With().Str("component", "scenario").Logger(),
		sinks:   sinks,
	}
}

// Actions returns the underlying action runner.
func (r *Runner) Actions() *actions.Runner {
	return r.actions
}

// Run executes the scenario's steps in order. Every step is checked against
// the registry before the first one runs; a failing step stops the run
// unless it is marked continue_on_error. The returned error is the halting
// step's error, wrapped with its position, so callers keep the failure's
// identity.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*RunResult, error) {
	if err := ValidateActions(s, r.actions.Registry()); err != nil {
		return nil, err
	}

	runID := tracing.NewRunID()
	ctx = tracing.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "scenario.run",
		attribute.String("scenario", s.Name),
		attribute.String("run_id", runID),
	)
	defer span.End()
	traceID := tracing.GetTraceID(ctx)

	logger := tracing.LoggerFromContext(ctx, r.logger).With().
		Str("scenario", s.Name).
		Str("run_id", runID).
		Logger()
	logger.Info().Int("steps", len(s.Steps)).Msg("Scenario run started")

	r.actions.State().SetValues(s.Context)

	result := &RunResult{
		RunID:    runID,
		Scenario: s.Name,
		Status:   StatusCompleted,
		Started:  time.Now(),
	}
	r.emit(Event{
		Type:     EventRunStarted,
		RunID:    runID,
		TraceID:  traceID,
		Scenario: s.Name,
		Status:   StatusRunning,
		Time:     result.Started,
	})

	var halt error
	for i, step := range s.Steps {
		r.emit(Event{
			Type:      EventStepStarted,
			RunID:     runID,
			TraceID:   traceID,
			Scenario:  s.Name,
			StepIndex: i,
			Action:    step.Action,
			Status:    StatusRunning,
			Time:      time.Now(),
		})

		start := time.Now()
		_, err := r.actions.Execute(ctx, step.Action, step.Params)
		duration := time.Since(start)

		stepResult := StepResult{
			Index:      i,
			Action:     step.Action,
			Status:     StatusCompleted,
			DurationMS: duration.Milliseconds(),
		}
		if err != nil {
			stepResult.Status = StatusFailed
			stepResult.Error = err.Error()
		}
		result.Steps = append(result.Steps, stepResult)

		r.emit(Event{
			Type:       EventStepFinished,
			RunID:      runID,
			TraceID:    traceID,
			Scenario:   s.Name,
			StepIndex:  i,
			Action:     step.Action,
			Status:     stepResult.Status,
			Error:      stepResult.Error,
			DurationMS: stepResult.DurationMS,
			Time:       time.Now(),
		})

		if err != nil {
			if !step.ContinueOnError {
				halt = fmt.Errorf("step %d (%s): %w", i, step.Action, err)
				break
			}
			logger.Warn().
				Int("step", i).
				Str("action", step.Action).
				Err(err).
				Msg("Step failed, continuing")
		}
	}

	result.Finished = time.Now()
	if halt != nil {
		result.Status = StatusFailed
		result.Error = halt.Error()
		span.RecordError(halt)
		span.SetStatus(codes.Error, halt.Error())
	}

	observability.RecordScenarioRun(s.Name, result.Finished.Sub(result.Started), halt == nil)
	r.emit(Event{
		Type:       EventRunFinished,
		RunID:      runID,
		TraceID:    traceID,
		Scenario:   s.Name,
		Status:     result.Status,
		Error:      result.Error,
		DurationMS: result.Finished.Sub(result.Started).Milliseconds(),
		Time:       result.Finished,
	})

	if halt != nil {
		logger.Error().Err(halt).Msg("Scenario run failed")
		return result, halt
	}

	logger.Info().
		Int("steps", len(result.Steps)).
		Dur("duration", result.Finished.Sub(result.Started)).
		Msg("Scenario run completed")
	return result, nil
}

func (r *Runner) emit(event Event) {
	for _, sink := range r.sinks {
		sink.ScenarioEvent(event)
	}
}
