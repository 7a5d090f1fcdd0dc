package live

import (
	"encoding/json"
	"log/slog"

	"github.com/promptlabs/prompthub/internal/events"
)

// Hub fans out events to every registered connection.
// It holds no state of its own; it reads the registry snapshot at delivery time.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
}

func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{registry: registry, logger: logger}
}

// Publish marshals the envelope once and enqueues the identical payload for
// every connection in the current registry snapshot. Enqueueing never waits
// on a peer; a connection that is closed or whose outbound queue is full is
// dropped from the registry and delivery continues with the rest.
func (h *Hub) Publish(envelopeType string, data any) {
	payload, err := json.Marshal(events.Envelope{Type: envelopeType, Data: data})
	if err != nil {
		h.logger.Warn("failed to marshal event for broadcast", "type", envelopeType, "error", err)
		return
	}

	for _, c := range h.registry.Snapshot() {
		if err := c.Send(payload); err != nil {
			h.logger.Warn("broadcast send failed, dropping connection",
				"type", envelopeType, "conn", c.ID(), "error", err)
			h.registry.Remove(c)
			_ = c.Close()
		}
	}
}
