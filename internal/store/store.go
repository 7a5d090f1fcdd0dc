package store

import (
	"context"
	"errors"

	"github.com/promptlabs/prompthub/internal/model"
)

// ErrNotFound is returned when a prompt id does not exist.
var ErrNotFound = errors.New("prompt not found")

// Store defines the persistence interface for prompts.
type Store interface {
	// CreatePrompt validates the draft, assigns an id and timestamps, and
	// persists the prompt.
	CreatePrompt(ctx context.Context, draft model.Draft) (*model.Prompt, error)

	// ListPrompts returns all prompts ordered by updated_at descending.
	ListPrompts(ctx context.Context) ([]*model.Prompt, error)

	// ListCategories returns the distinct categories currently in use.
	ListCategories(ctx context.Context) ([]string, error)

	// UpdatePrompt overwrites title, content, and category unconditionally
	// and refreshes updated_at. Returns ErrNotFound if id does not exist.
	UpdatePrompt(ctx context.Context, id int64, draft model.Draft) (*model.Prompt, error)

	// DeletePrompt removes the prompt if present. Deleting an absent id is
	// not an error; the bool reports whether a row was actually removed.
	DeletePrompt(ctx context.Context, id int64) (bool, error)

	// BulkInsertPrompts inserts all drafts or none. Any invalid draft
	// rejects the whole batch. Returns the number of rows inserted.
	BulkInsertPrompts(ctx context.Context, drafts []model.Draft) (int, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
