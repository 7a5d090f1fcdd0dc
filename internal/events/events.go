// Package events defines the typed events fanned out to live viewers and
// the optional bus publisher that mirrors them.
package events

import "context"

// Envelope types sent to live viewers over the websocket channel.
const (
	TypeInitialData     = "initial_data"
	TypePromptCreated   = "prompt_created"
	TypePromptUpdated   = "prompt_updated"
	TypePromptDeleted   = "prompt_deleted"
	TypePromptsImported = "prompts_imported"
)

// Bus topic constants mirroring each broadcast.
const (
	TopicPromptCreated   = "prompthub.prompt.created"
	TopicPromptUpdated   = "prompthub.prompt.updated"
	TopicPromptDeleted   = "prompthub.prompt.deleted"
	TopicPromptsImported = "prompthub.prompt.imported"
)

// TopicFor maps an envelope type to its bus topic. Unknown types (including
// the per-connection snapshot, which is never mirrored) return "".
func TopicFor(envelopeType string) string {
	switch envelopeType {
	case TypePromptCreated:
		return TopicPromptCreated
	case TypePromptUpdated:
		return TopicPromptUpdated
	case TypePromptDeleted:
		return TopicPromptDeleted
	case TypePromptsImported:
		return TopicPromptsImported
	}
	return ""
}

// Envelope is the wire format for every server-to-viewer message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PromptDeleted is the payload for prompt_deleted events.
type PromptDeleted struct {
	ID int64 `json:"id"`
}

// PromptsImported is the payload for prompts_imported events.
type PromptsImported struct {
	Count int `json:"count"`
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
