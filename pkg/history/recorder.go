package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/harun/rudder/pkg/scenario"
)

// Recorder persists scenario run events as they happen. It implements
// scenario.EventSink, so wiring it into a scenario runner is all the
// integration there is. Write failures are logged, never surfaced: history
// must not be able to fail a run.
type Recorder struct {
	store  *Store
	logger zerolog.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "history-recorder").Logger(),
	}
}

// ScenarioEvent records one run lifecycle event.
func (r *Recorder) ScenarioEvent(event scenario.Event) {
	ctx := context.Background()

	var err error
	switch event.Type {
	case scenario.EventRunStarted:
		err = r.store.StartRun(ctx, event.RunID, event.Scenario, event.Time)

	case scenario.EventStepFinished:
		err = r.store.RecordStep(ctx, event.RunID, StepRecord{
			Index:      event.StepIndex,
			Action:     event.Action,
			Status:     event.Status,
			Error:      event.Error,
			DurationMS: event.DurationMS,
		})

	case scenario.EventRunFinished:
		err = r.store.FinishRun(ctx, event.RunID, event.Status, event.Error, event.Time)
		if err == nil {
			_, err = r.store.Prune(ctx)
		}
	}

	if err != nil {
		r.logger.Error().
			Err(err).
			Str("run_id", event.RunID).
			Str("event", string(event.Type)).
			Msg("Failed to record run history")
	}
}
