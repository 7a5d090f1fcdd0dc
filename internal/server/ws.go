package server

import (
	"encoding/json"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/promptlabs/prompthub/internal/events"
	"github.com/promptlabs/prompthub/internal/live"
	"github.com/promptlabs/prompthub/internal/model"
)

// handleWebSocket handles GET /api/ws.
//
// A new viewer is registered with the live registry (which puts it under
// heartbeat supervision), then receives a full snapshot of the current
// prompt set on its connection alone. The handler then blocks reading the
// connection so pong frames are processed and disconnects are noticed;
// request handling for other endpoints is unaffected.
func (s *PromptServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		s.logger.Error("failed to generate connection id", "error", err)
		_ = ws.Close()
		return
	}

	conn := live.NewConn(id, ws)
	s.registry.Add(conn)

	if err := s.sendSnapshot(r, conn); err != nil {
		s.logger.Warn("failed to send snapshot, dropping connection", "conn", id, "error", err)
		s.registry.Remove(conn)
		_ = conn.Close()
		return
	}

	s.logger.Info("viewer connected", "conn", id, "viewers", s.registry.Len())

	conn.ReadLoop()

	s.registry.Remove(conn)
	_ = conn.Close()
	s.logger.Info("viewer disconnected", "conn", id, "viewers", s.registry.Len())
}

// sendSnapshot sends the initial_data event, built from the current prompt
// set, to a single connection.
func (s *PromptServer) sendSnapshot(r *http.Request, conn *live.Conn) error {
	prompts, err := s.store.ListPrompts(r.Context())
	if err != nil {
		return err
	}
	if prompts == nil {
		prompts = []*model.Prompt{}
	}

	payload, err := json.Marshal(events.Envelope{Type: events.TypeInitialData, Data: prompts})
	if err != nil {
		return err
	}
	return conn.Send(payload)
}
