package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/digest/internal/analysis"
	"github.com/MikeSquared-Agency/digest/internal/llm"
	"github.com/MikeSquared-Agency/digest/internal/pipeline"
)

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, system string, messages []llm.Message, maxTokens int) (string, error) {
	return "{}", nil
}

func testServer(token string) *Server {
	logger := slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
	an := analysis.NewAnalyzer(stubLLM{}, analysis.DefaultRetryPolicy(), logger)
	ag := analysis.NewAggregator(stubLLM{}, analysis.DefaultRetryPolicy(), logger)
	p := pipeline.New(an, ag, pipeline.Config{}, nil, nil, logger)
	return NewServer(8760, token, p, nil)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestHealthEndpoint(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("GET", "/api/v1/digest/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body struct {
		Agent    string          `json:"agent"`
		Pipeline pipeline.Status `json:"pipeline"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Agent != "digest" {
		t.Errorf("expected agent digest, got %q", body.Agent)
	}
	if body.Pipeline.State != pipeline.StateIdle {
		t.Errorf("expected idle pipeline, got %q", body.Pipeline.State)
	}
}

func TestAnalyzeEndpoint_RequiresToken(t *testing.T) {
	srv := testServer("secret")

	req := httptest.NewRequest("POST", "/api/v1/digest/analyze", strings.NewReader(`{"input_ref":"in.json","output_ref":"out.md"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/digest/analyze", strings.NewReader(`{"input_ref":"in.json","output_ref":"out.md"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
}

func TestAnalyzeEndpoint_RejectsBadPayload(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("POST", "/api/v1/digest/analyze", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/digest/analyze", strings.NewReader(`{"input_ref":""}`))
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing refs, got %d", w.Code)
	}
}

func TestRunReportEndpoint_RejectsBadID(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("GET", "/api/v1/digest/runs/not-a-uuid/report", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid run id, got %d", w.Code)
	}
}

func TestRunReportEndpoint_NotFoundWithoutArchive(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("GET", "/api/v1/digest/runs/27f0c8f8-3bb6-4deb-a2d5-cbbb0a4a701c/report", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without an archive, got %d", w.Code)
	}
}

func TestRunsEndpoint_EmptyWithoutArchive(t *testing.T) {
	srv := testServer("")

	req := httptest.NewRequest("GET", "/api/v1/digest/runs", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body struct {
		Runs []any `json:"runs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Runs) != 0 {
		t.Errorf("expected no runs, got %d", len(body.Runs))
	}
}
