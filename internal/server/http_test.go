package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/promptlabs/prompthub/internal/events"
	"github.com/promptlabs/prompthub/internal/model"
	"github.com/promptlabs/prompthub/internal/store"
)

// mockStore is an in-memory store.Store used by handler tests.
type mockStore struct {
	mu      sync.Mutex
	prompts map[int64]*model.Prompt
	nextID  int64

	// listErr, when non-nil, is returned by ListPrompts (for testing 500s).
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{prompts: make(map[int64]*model.Prompt)}
}

func (m *mockStore) CreatePrompt(_ context.Context, draft model.Draft) (*model.Prompt, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	p := &model.Prompt{
		ID:        m.nextID,
		Title:     draft.Title,
		Content:   draft.Content,
		Category:  draft.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.prompts[p.ID] = p
	return p, nil
}

func (m *mockStore) ListPrompts(_ context.Context) ([]*model.Prompt, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Prompt
	for _, p := range m.prompts {
		clone := *p
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *mockStore) ListCategories(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var categories []string
	for _, p := range m.prompts {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *mockStore) UpdatePrompt(_ context.Context, id int64, draft model.Draft) (*model.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Title = draft.Title
	p.Content = draft.Content
	p.Category = draft.Category
	p.UpdatedAt = time.Now().UTC().Add(time.Millisecond)
	clone := *p
	return &clone, nil
}

func (m *mockStore) DeletePrompt(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.prompts[id]
	delete(m.prompts, id)
	return ok, nil
}

func (m *mockStore) BulkInsertPrompts(ctx context.Context, drafts []model.Draft) (int, error) {
	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return 0, err
		}
	}
	for i := range drafts {
		if _, err := m.CreatePrompt(ctx, drafts[i]); err != nil {
			return 0, err
		}
	}
	return len(drafts), nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// recordingPublisher captures bus publishes for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func newTestServer() (*PromptServer, *mockStore, *recordingPublisher) {
	ms := newMockStore()
	pub := &recordingPublisher{}
	return New(ms, pub, time.Minute, nil), ms, pub
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreatePrompt_Handler(t *testing.T) {
	s, ms, pub := newTestServer()
	handler := s.NewHTTPHandler()

	rec := doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"T","content":"C"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.ID != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if ms.count() != 1 {
		t.Fatalf("expected 1 stored prompt, got %d", ms.count())
	}
	if got := pub.published(); len(got) != 1 || got[0] != events.TopicPromptCreated {
		t.Fatalf("unexpected bus publishes: %v", got)
	}
}

func TestCreatePrompt_DefaultCategoryAndTimestamps(t *testing.T) {
	s, _, _ := newTestServer()
	handler := s.NewHTTPHandler()

	rec := doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"T","content":"C"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/prompts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var prompts []*model.Prompt
	if err := json.Unmarshal(rec.Body.Bytes(), &prompts); err != nil {
		t.Fatalf("decoding prompts: %v", err)
	}
	if len(prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(prompts))
	}
	if prompts[0].Category != model.DefaultCategory {
		t.Fatalf("expected category %q, got %q", model.DefaultCategory, prompts[0].Category)
	}
	if !prompts[0].CreatedAt.Equal(prompts[0].UpdatedAt) {
		t.Fatalf("fresh prompt should have created_at == updated_at")
	}
}

func TestCreatePrompt_MissingFields(t *testing.T) {
	s, ms, pub := newTestServer()
	handler := s.NewHTTPHandler()

	for _, body := range []string{
		`{"content":"C"}`,
		`{"title":"T"}`,
		`not json`,
	} {
		rec := doRequest(t, handler, http.MethodPost, "/api/prompts", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}

	if ms.count() != 0 {
		t.Fatalf("invalid requests must not create prompts, got %d", ms.count())
	}
	if got := pub.published(); len(got) != 0 {
		t.Fatalf("invalid requests must not publish events: %v", got)
	}
}

func TestUpdatePrompt_Handler(t *testing.T) {
	s, _, pub := newTestServer()
	handler := s.NewHTTPHandler()

	doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"T","content":"C"}`)

	rec := doRequest(t, handler, http.MethodPut, "/api/prompts/1", `{"title":"T2","content":"C2","category":"X"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/prompts", "")
	var prompts []*model.Prompt
	if err := json.Unmarshal(rec.Body.Bytes(), &prompts); err != nil {
		t.Fatalf("decoding prompts: %v", err)
	}
	p := prompts[0]
	if p.Title != "T2" || p.Content != "C2" || p.Category != "X" {
		t.Fatalf("update did not replace all fields: %+v", p)
	}
	if !p.UpdatedAt.After(p.CreatedAt) {
		t.Fatal("update must refresh updated_at")
	}

	want := []string{events.TopicPromptCreated, events.TopicPromptUpdated}
	if got := pub.published(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected bus publishes: %v", got)
	}
}

func TestUpdatePrompt_NotFound(t *testing.T) {
	s, _, pub := newTestServer()
	handler := s.NewHTTPHandler()

	rec := doRequest(t, handler, http.MethodPut, "/api/prompts/99", `{"title":"T","content":"C","category":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/prompts/abc", `{"title":"T","content":"C","category":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d", rec.Code)
	}

	if got := pub.published(); len(got) != 0 {
		t.Fatalf("failed updates must not publish events: %v", got)
	}
}

func TestDeletePrompt_Idempotent(t *testing.T) {
	s, _, pub := newTestServer()
	handler := s.NewHTTPHandler()

	doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"T","content":"C"}`)

	rec := doRequest(t, handler, http.MethodDelete, "/api/prompts/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Deleting again still succeeds but publishes nothing.
	rec = doRequest(t, handler, http.MethodDelete, "/api/prompts/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for no-op delete, got %d", rec.Code)
	}

	want := []string{events.TopicPromptCreated, events.TopicPromptDeleted}
	got := pub.published()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("no-op delete must not publish; got %v", got)
	}
}

func TestImportPrompts_Handler(t *testing.T) {
	s, ms, pub := newTestServer()
	handler := s.NewHTTPHandler()

	body := `[{"title":"A","content":"CA"},{"title":"B","content":"CB","category":"X"}]`
	rec := doRequest(t, handler, http.MethodPost, "/api/prompts/import", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Count != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if ms.count() != 2 {
		t.Fatalf("expected 2 stored prompts, got %d", ms.count())
	}
	if got := pub.published(); len(got) != 1 || got[0] != events.TopicPromptsImported {
		t.Fatalf("unexpected bus publishes: %v", got)
	}
}

func TestImportPrompts_AllOrNothing(t *testing.T) {
	s, ms, pub := newTestServer()
	handler := s.NewHTTPHandler()

	// Row 3 of 5 has an empty title.
	body := `[
		{"title":"A","content":"C"},
		{"title":"B","content":"C"},
		{"title":"","content":"C"},
		{"title":"D","content":"C"},
		{"title":"E","content":"C"}
	]`
	rec := doRequest(t, handler, http.MethodPost, "/api/prompts/import", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ms.count() != 0 {
		t.Fatalf("rejected batch must persist nothing, got %d rows", ms.count())
	}
	if got := pub.published(); len(got) != 0 {
		t.Fatalf("rejected batch must not publish events: %v", got)
	}
}

func TestImportPrompts_BodyNotAnArray(t *testing.T) {
	s, _, _ := newTestServer()
	handler := s.NewHTTPHandler()

	rec := doRequest(t, handler, http.MethodPost, "/api/prompts/import", `{"title":"A","content":"C"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-array body, got %d", rec.Code)
	}
}

func TestImportPrompts_NullBody(t *testing.T) {
	s, _, pub := newTestServer()
	handler := s.NewHTTPHandler()

	// A bare null decodes into a nil slice without a decode error but it is
	// still not an array.
	rec := doRequest(t, handler, http.MethodPost, "/api/prompts/import", `null`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for null body, got %d", rec.Code)
	}
	if got := pub.published(); len(got) != 0 {
		t.Fatalf("expected no events for a rejected import, got %v", got)
	}
}

func TestListPrompts_StoreFailure(t *testing.T) {
	s, ms, _ := newTestServer()
	handler := s.NewHTTPHandler()

	ms.listErr = errors.New("disk I/O error")
	rec := doRequest(t, handler, http.MethodGet, "/api/prompts", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk I/O") {
		t.Fatalf("500 body must be generic, got %s", rec.Body)
	}
}

func TestListCategories_Handler(t *testing.T) {
	s, _, _ := newTestServer()
	handler := s.NewHTTPHandler()

	doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"A","content":"C"}`)
	doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"B","content":"C","category":"X"}`)
	doRequest(t, handler, http.MethodPost, "/api/prompts", `{"title":"C","content":"C","category":"X"}`)

	rec := doRequest(t, handler, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var categories []string
	if err := json.Unmarshal(rec.Body.Bytes(), &categories); err != nil {
		t.Fatalf("decoding categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 distinct categories, got %v", categories)
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer()
	handler := s.NewHTTPHandler()

	rec := doRequest(t, handler, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Viewers int    `json:"viewers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.Viewers != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
