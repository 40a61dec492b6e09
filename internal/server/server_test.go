package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomasbasham/pageshot/internal/llmclient"
	"github.com/tomasbasham/pageshot/internal/model"
)

type fakeStore struct {
	pages map[string]model.Page
}

func (f *fakeStore) GetPage(ctx context.Context, pageID string) (model.Page, error) {
	p, ok := f.pages[pageID]
	if !ok {
		return model.Page{}, errNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPagesForSite(ctx context.Context, siteID string) ([]model.Page, error) {
	var out []model.Page
	for _, p := range f.pages {
		if p.SiteID == siteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePage(ctx context.Context, p model.Page) error {
	f.pages[p.ID] = p
	return nil
}

func (f *fakeStore) CreateInstruction(ctx context.Context, in model.Instruction) error { return nil }
func (f *fakeStore) CreateTest(ctx context.Context, t model.Test) error                { return nil }

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "not found" }

type fakeCollaborator struct {
	script string
	err    error
	pages  []string
}

func (f *fakeCollaborator) GenerateScript(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	return llmclient.GenerateResponse{Script: f.script}, f.err
}

func (f *fakeCollaborator) GenerateTest(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	return llmclient.GenerateResponse{Script: f.script}, f.err
}

func (f *fakeCollaborator) GenerateActionScript(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	return llmclient.GenerateResponse{Script: f.script}, f.err
}

func (f *fakeCollaborator) GenerateActionTest(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	return llmclient.GenerateResponse{Script: f.script}, f.err
}

func (f *fakeCollaborator) DiscoverPages(ctx context.Context, siteURL string) ([]string, error) {
	return f.pages, f.err
}

func TestHandleHealth(t *testing.T) {
	s := New(&fakeStore{pages: map[string]model.Page{}}, &fakeCollaborator{}, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleGenerateScriptRejectsMissingPage(t *testing.T) {
	s := New(&fakeStore{pages: map[string]model.Page{}}, &fakeCollaborator{}, nil, nil, nil)
	body, _ := json.Marshal(generateRequest{PageID: "missing", Prompt: "do something"})
	req := httptest.NewRequest(http.MethodPost, "/generate-script", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGenerateActionScriptValidatesOutput(t *testing.T) {
	pages := map[string]model.Page{"p1": {ID: "p1", URL: "https://example.com"}}
	llm := &fakeCollaborator{script: `{"steps":[{"action":"click","selector":"#submit"}]}`}
	s := New(&fakeStore{pages: pages}, llm, nil, nil, nil)

	body, _ := json.Marshal(generateRequest{PageID: "p1", Prompt: "click submit"})
	req := httptest.NewRequest(http.MethodPost, "/generate-action-script", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGenerateActionScriptRejectsInvalidOutput(t *testing.T) {
	pages := map[string]model.Page{"p1": {ID: "p1", URL: "https://example.com"}}
	llm := &fakeCollaborator{script: `{"steps":[{"action":"unknown-thing"}]}`}
	s := New(&fakeStore{pages: pages}, llm, nil, nil, nil)

	body, _ := json.Marshal(generateRequest{PageID: "p1", Prompt: "do something weird"})
	req := httptest.NewRequest(http.MethodPost, "/generate-action-script", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTestScriptRejectsUnknownScriptType(t *testing.T) {
	s := New(&fakeStore{pages: map[string]model.Page{}}, &fakeCollaborator{}, nil, nil, nil)
	body, _ := json.Marshal(testScriptRequest{Script: "x", ScriptType: "nonsense"})
	req := httptest.NewRequest(http.MethodPost, "/test-script", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDiscoverPages(t *testing.T) {
	llm := &fakeCollaborator{pages: []string{"https://example.com/a", "https://example.com/b"}}
	s := New(&fakeStore{pages: map[string]model.Page{}}, llm, nil, nil, nil)

	body, _ := json.Marshal(discoverPagesRequest{SiteURL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/discover-pages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
