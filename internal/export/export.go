// Package export writes periodic JSONL snapshots of the prompt collection
// to one or more destinations (S3-compatible object storage, or anything
// else implementing Destination).
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/promptlabs/prompthub/internal/store"
)

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	PromptCount int       `json:"prompt_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WriteJSONL writes all prompts from the store as JSONL to w, most recently
// updated first (the store's list order).
func WriteJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		return fmt.Errorf("list prompts: %w", err)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(header{
		Version:     "1",
		Type:        "prompthub.snapshot",
		Timestamp:   time.Now().UTC(),
		PromptCount: len(prompts),
	}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range prompts {
		if err := enc.Encode(record{Type: "prompt", Data: p}); err != nil {
			return fmt.Errorf("write prompt %d: %w", p.ID, err)
		}
	}
	return nil
}
