package gateway

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// EventBroadcaster delivers events to all authenticated clients. Every
// message gets a monotonic sequence number so clients can detect gaps.
type EventBroadcaster struct {
	clients *ClientRegistry
	logger  zerolog.Logger
	seq     atomic.Int64
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster(clients *ClientRegistry, logger zerolog.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		clients: clients,
		logger:  logger,
	}
}

// Broadcast sends a bare event to all authenticated clients
func (b *EventBroadcaster) Broadcast(event string, data interface{}) {
	b.BroadcastTyped(EventMessage{
		Event: event,
		Data:  data,
	})
}

// BroadcastTyped sends a typed stream event, filling in sequence and
// timestamp when the caller left them zero.
func (b *EventBroadcaster) BroadcastTyped(msg EventMessage) {
	msg.Type = "event"
	if msg.Seq == 0 {
		msg.Seq = b.seq.Add(1)
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	b.broadcastMessage(msg)
}

func (b *EventBroadcaster) broadcastMessage(msg EventMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("event", msg.Event).
			Str("stream", string(msg.Stream)).
			Int64("seq", msg.Seq).
			Msg("Failed to marshal event")
		return
	}

	clients := b.clients.GetAuthenticatedClients()
	if len(clients) == 0 {
		return
	}

	failureCount := 0
	for _, client := range clients {
		if err := client.WriteText(jsonData); err != nil {
			b.logger.Warn().
				Err(err).
				Str("clientId", client.ID).
				Str("event", msg.Event).
				Int64("seq", msg.Seq).
				Msg("Failed to broadcast to client")
			failureCount++
		}
	}

	b.logger.Debug().
		Str("event", msg.Event).
		Str("stream", string(msg.Stream)).
		Str("phase", msg.Phase).
		Int64("seq", msg.Seq).
		Int("clients", len(clients)).
		Int("failed", failureCount).
		Msg("Event broadcast complete")
}
