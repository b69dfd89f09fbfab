package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deploypilot/app/core/ideas"
)

const maxBodyBytes = 64 * 1024

type Server struct {
	port            int
	store           *ideas.Store
	server          *http.Server
	shutdownTimeout time.Duration
	startedUnix     atomic.Int64
	metrics         *apiMetrics
	statusProvider  func(context.Context) map[string]interface{}
}

func NewServer(port int, store *ideas.Store) *Server {
	return &Server{
		port:            port,
		store:           store,
		shutdownTimeout: 5 * time.Second,
		metrics:         getAPIMetrics(),
	}
}

func (s *Server) SetShutdownTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	s.shutdownTimeout = timeout
}

func (s *Server) SetStatusProvider(provider func(context.Context) map[string]interface{}) {
	s.statusProvider = provider
}

func (s *Server) Start(ctx context.Context) error {
	s.startedUnix.Store(time.Now().Unix())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ideas", s.instrument("/ideas", s.handleIdeas))
	mux.HandleFunc("/ideas/", s.instrument("/ideas/{id}", s.handleIdeaByID))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}()

	log.Printf("[HTTP] Listening on port %d...", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items := s.store.List()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ideas": items,
			"count": len(items),
		})
	case http.MethodPost:
		s.handleCreateIdea(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createIdeaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	var req createIdeaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	idea := s.store.Create(req.Title, req.Description)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Idea created successfully",
		"idea":    idea,
	})
}

func (s *Server) handleIdeaByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/ideas/")
	id, err := strconv.ParseInt(strings.TrimSuffix(rawID, "/"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid idea id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		idea, ok := s.store.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "idea not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"idea": idea})
	case http.MethodDelete:
		if !s.store.Delete(id) {
			writeError(w, http.StatusNotFound, "idea not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Idea deleted", "id": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type statusResponse struct {
	Service    string                 `json:"service"`
	StartedAt  string                 `json:"started_at"`
	UptimeSec  int64                  `json:"uptime_sec"`
	IdeasCount int                    `json:"ideas_count"`
	Runtime    map[string]interface{} `json:"runtime,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	started := s.startedUnix.Load()
	resp := statusResponse{
		Service:    "ideas-api",
		IdeasCount: s.store.Count(),
	}
	if started > 0 {
		resp.StartedAt = time.Unix(started, 0).UTC().Format(time.RFC3339)
		resp.UptimeSec = time.Now().Unix() - started
	}
	if s.statusProvider != nil {
		resp.Runtime = s.statusProvider(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		recorder.Header().Set("X-Request-ID", uuid.NewString())
		next(recorder, r)
		s.metrics.observe(route, r.Method, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
