package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/promptlabs/prompthub/internal/events"
	"github.com/promptlabs/prompthub/internal/model"
	"github.com/promptlabs/prompthub/internal/store"
)

// handleListPrompts handles GET /api/prompts.
func (s *PromptServer) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := s.store.ListPrompts(r.Context())
	if err != nil {
		s.logger.Error("failed to list prompts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}

	// Ensure the result is never null in JSON output.
	if prompts == nil {
		prompts = []*model.Prompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

// handleListCategories handles GET /api/categories.
func (s *PromptServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleCreatePrompt handles POST /api/prompts.
func (s *PromptServer) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt, err := s.store.CreatePrompt(r.Context(), draft)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.publish(r.Context(), events.TypePromptCreated, prompt)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": prompt.ID})
}

// handleImportPrompts handles POST /api/prompts/import.
// The batch is atomic: either every row is inserted or none are, and the
// prompts_imported event is only published for a committed batch.
func (s *PromptServer) handleImportPrompts(w http.ResponseWriter, r *http.Request) {
	var drafts []model.Draft
	if err := json.NewDecoder(r.Body).Decode(&drafts); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be an array of prompts")
		return
	}
	// A JSON null decodes without error but is not an array.
	if drafts == nil {
		writeError(w, http.StatusBadRequest, "request body must be an array of prompts")
		return
	}

	count, err := s.store.BulkInsertPrompts(r.Context(), drafts)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.publish(r.Context(), events.TypePromptsImported, events.PromptsImported{Count: count})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

// handleUpdatePrompt handles PUT /api/prompts/{id}.
func (s *PromptServer) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		// A non-numeric id cannot name an existing prompt.
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}

	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt, err := s.store.UpdatePrompt(r.Context(), id, draft)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.publish(r.Context(), events.TypePromptUpdated, prompt)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDeletePrompt handles DELETE /api/prompts/{id}.
// Delete is idempotent: an absent id still succeeds, but only an actual
// removal publishes a prompt_deleted event.
func (s *PromptServer) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		// Nothing to delete.
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	deleted, err := s.store.DeletePrompt(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if deleted {
		s.publish(r.Context(), events.TypePromptDeleted, events.PromptDeleted{ID: id})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeStoreError maps store errors onto the HTTP error taxonomy.
func (s *PromptServer) writeStoreError(w http.ResponseWriter, err error) {
	var ve model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "prompt not found")
	default:
		s.logger.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
