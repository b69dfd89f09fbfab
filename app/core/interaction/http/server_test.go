package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deploypilot/app/core/ideas"
)

func newTestServer() *Server {
	return NewServer(8000, ideas.NewStore())
}

func TestSetShutdownTimeout(t *testing.T) {
	s := newTestServer()
	if s.shutdownTimeout != 5*time.Second {
		t.Fatalf("unexpected default shutdown timeout: %s", s.shutdownTimeout)
	}

	s.SetShutdownTimeout(12 * time.Second)
	if s.shutdownTimeout != 12*time.Second {
		t.Fatalf("unexpected shutdown timeout after set: %s", s.shutdownTimeout)
	}

	s.SetShutdownTimeout(0)
	if s.shutdownTimeout != 12*time.Second {
		t.Fatalf("zero timeout should be ignored, got: %s", s.shutdownTimeout)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", payload)
	}
}

func TestHandleIdeasList(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/ideas", nil)
	rr := httptest.NewRecorder()
	s.handleIdeas(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("unexpected content type: %s", rr.Header().Get("Content-Type"))
	}

	var payload struct {
		Ideas []ideas.Idea `json:"ideas"`
		Count int          `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if payload.Count != 3 || len(payload.Ideas) != 3 {
		t.Fatalf("unexpected list payload: %+v", payload)
	}
}

func TestHandleIdeasCreate(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(map[string]string{
		"title":       "Test Idea",
		"description": "This is a test description",
	})
	req := httptest.NewRequest(http.MethodPost, "/ideas", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleIdeas(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	var payload struct {
		Message string     `json:"message"`
		Idea    ideas.Idea `json:"idea"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if payload.Idea.Title != "Test Idea" {
		t.Fatalf("unexpected title: %q", payload.Idea.Title)
	}
	if payload.Idea.ID != 4 {
		t.Fatalf("unexpected ID: %d", payload.Idea.ID)
	}
}

func TestHandleIdeasCreateValidation(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/ideas", strings.NewReader(`{"description": "no title"}`))
	rr := httptest.NewRecorder()
	s.handleIdeas(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing title should be 400, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/ideas", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	s.handleIdeas(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid JSON should be 400, got %d", rr.Code)
	}
}

func TestHandleIdeasMethodNotAllowed(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPut, "/ideas", nil)
	rr := httptest.NewRecorder()
	s.handleIdeas(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHandleIdeaByID(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/ideas/2", nil)
	rr := httptest.NewRecorder()
	s.handleIdeaByID(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ideas/99", nil)
	rr = httptest.NewRecorder()
	s.handleIdeaByID(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing idea should be 404, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ideas/abc", nil)
	rr = httptest.NewRecorder()
	s.handleIdeaByID(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id should be 400, got %d", rr.Code)
	}
}

func TestHandleIdeaDelete(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/ideas/1", nil)
	rr := httptest.NewRecorder()
	s.handleIdeaByID(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ideas/1", nil)
	rr = httptest.NewRecorder()
	s.handleIdeaByID(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted idea should be 404, got %d", rr.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer()
	s.startedUnix.Store(time.Now().Add(-5 * time.Second).Unix())
	s.SetStatusProvider(func(ctx context.Context) map[string]interface{} {
		return map[string]interface{}{"namespace": "ideas-api"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	s.handleStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	var payload statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if payload.Service != "ideas-api" {
		t.Fatalf("unexpected service: %s", payload.Service)
	}
	if payload.UptimeSec <= 0 {
		t.Fatalf("uptime should be positive: %d", payload.UptimeSec)
	}
	if payload.IdeasCount != 3 {
		t.Fatalf("unexpected ideas count: %d", payload.IdeasCount)
	}
	if payload.Runtime["namespace"] != "ideas-api" {
		t.Fatalf("status provider payload missing: %v", payload.Runtime)
	}
}

func TestInstrumentSetsRequestID(t *testing.T) {
	s := newTestServer()
	handler := s.instrument("/ideas", s.handleIdeas)

	req := httptest.NewRequest(http.MethodGet, "/ideas", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}
