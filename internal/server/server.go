// Package server wires the store, the live-connection registry, and the
// event publisher behind the HTTP and websocket API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/promptlabs/prompthub/internal/events"
	"github.com/promptlabs/prompthub/internal/live"
	"github.com/promptlabs/prompthub/internal/store"
)

// PromptServer serves the prompt API and keeps connected viewers in sync.
type PromptServer struct {
	store     store.Store
	publisher events.Publisher
	registry  *live.Registry
	hub       *live.Hub
	monitor   *live.Monitor
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New returns a PromptServer backed by the given store and publisher.
// heartbeat is the probe cycle period; zero uses the default.
func New(s store.Store, p events.Publisher, heartbeat time.Duration, logger *slog.Logger) *PromptServer {
	if logger == nil {
		logger = slog.Default()
	}
	registry := live.NewRegistry()
	return &PromptServer{
		store:     s,
		publisher: p,
		registry:  registry,
		hub:       live.NewHub(registry, logger),
		monitor:   live.NewMonitor(registry, heartbeat, logger),
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API carries no credentials; viewers connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start launches the heartbeat monitor.
func (s *PromptServer) Start() {
	s.monitor.Start()
}

// Stop shuts down the heartbeat monitor and closes every live connection.
func (s *PromptServer) Stop() {
	s.monitor.Stop()
	s.registry.ForEach(func(c *live.Conn) {
		s.registry.Remove(c)
		_ = c.Close()
	})
}

// publish fans a committed mutation out to all live viewers and mirrors it
// to the event bus. The bus mirror is best-effort; failures are logged but
// do not affect the caller.
func (s *PromptServer) publish(ctx context.Context, envelopeType string, data any) {
	s.hub.Publish(envelopeType, data)

	topic := events.TopicFor(envelopeType)
	if topic == "" {
		return
	}
	if err := s.publisher.Publish(ctx, topic, events.Envelope{Type: envelopeType, Data: data}); err != nil {
		s.logger.Warn("failed to publish event to bus", "topic", topic, "error", err)
	}
}
