// Package api exposes the pipeline's status and trigger endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/digest/internal/pipeline"
	"github.com/MikeSquared-Agency/digest/internal/store"
)

type Server struct {
	router   *chi.Mux
	port     int
	pipeline *pipeline.Pipeline
	db       *store.Store
	apiToken string
}

// NewServer wires the digest HTTP surface. db may be nil when no archive is
// configured.
func NewServer(port int, apiToken string, p *pipeline.Pipeline, db *store.Store) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		pipeline: p,
		db:       db,
		apiToken: apiToken,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/digest/status", s.status)
	router.Get("/api/v1/digest/runs", s.latestRuns)
	router.Get("/api/v1/digest/runs/{id}/report", s.runReport)
	router.With(bearerAuth(apiToken)).Post("/api/v1/digest/analyze", s.analyze)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "digest",
		"pipeline": s.pipeline.Status(),
	})
}

func (s *Server) latestRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []store.RunSummary{}})
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.db.LatestRuns(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		http.Error(w, `{"error":"failed to list runs"}`, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// runReport serves the archived final report for one run as markdown.
func (s *Server) runReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid run id"}`, http.StatusBadRequest)
		return
	}
	if s.db == nil {
		http.Error(w, `{"error":"run archive not configured"}`, http.StatusNotFound)
		return
	}

	md, err := s.db.GetReport(r.Context(), id)
	if err != nil {
		slog.Error("failed to fetch report", "run_id", id, "error", err)
		http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// AnalyzeRequest triggers a pipeline run over HTTP.
type AnalyzeRequest struct {
	InputRef  string `json:"input_ref"`
	OutputRef string `json:"output_ref"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if req.InputRef == "" || req.OutputRef == "" {
		http.Error(w, `{"error":"input_ref and output_ref are required"}`, http.StatusBadRequest)
		return
	}

	st := s.pipeline.State()
	if st != pipeline.StateIdle && !st.Terminal() {
		http.Error(w, `{"error":"a run is already in progress"}`, http.StatusConflict)
		return
	}

	// The run outlives the request; the caller polls /status.
	go func() {
		if _, err := s.pipeline.Run(context.Background(), req.InputRef, req.OutputRef); err != nil {
			slog.Error("triggered run failed", "input", req.InputRef, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"input_ref": req.InputRef,
	})
}

// bearerAuth guards mutating endpoints. An empty token disables the guard.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				auth := r.Header.Get("Authorization")
				if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
					http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
