package gateway

import (
	"github.com/harun/rudder/pkg/scenario"
	"github.com/harun/rudder/pkg/schedule"
)

// ScenarioSink bridges scenario run events onto the gateway's event stream.
// It implements scenario.EventSink; wire it into the scenario runner to let
// connected clients follow runs step by step.
type ScenarioSink struct {
	broadcaster *EventBroadcaster
}

// NewScenarioSink creates a sink that broadcasts to the given broadcaster.
func NewScenarioSink(broadcaster *EventBroadcaster) *ScenarioSink {
	return &ScenarioSink{broadcaster: broadcaster}
}

// ScenarioEvent broadcasts one run lifecycle event. Broadcasting never
// blocks on clients, which keeps the runner's no-blocking sink contract.
func (s *ScenarioSink) ScenarioEvent(event scenario.Event) {
	s.broadcaster.BroadcastTyped(EventMessage{
		Event:   string(event.Type),
		Stream:  StreamTypeScenario,
		Phase:   event.Status,
		RunID:   event.RunID,
		TraceID: event.TraceID,
		Data:    event,
	})
}

// ScheduleEvents returns a callback for schedule.Options.OnEvent that
// broadcasts scheduler events to connected clients.
func ScheduleEvents(broadcaster *EventBroadcaster) func(evt schedule.Event) {
	return func(evt schedule.Event) {
		broadcaster.BroadcastTyped(EventMessage{
			Event:  "schedule." + string(evt.Action),
			Stream: StreamTypeSchedule,
			Phase:  evt.Status,
			Data:   evt,
		})
	}
}
