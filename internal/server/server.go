// Package server exposes the classification pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/journal"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/pipeline"
	"github.com/straja-ai/fieldsense/internal/redact"
)

const defaultMaxBodyBytes = 1 << 20

// Server is the HTTP front of one pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	maxBody  int64
	version  string
	router   chi.Router
}

// New builds the router. maxBody <= 0 means 1 MiB.
func New(p *pipeline.Pipeline, maxBody int64, version string) *Server {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	s := &Server{pipeline: p, maxBody: maxBody, version: version}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Get("/stats", s.handleStats)
		r.Get("/learned", s.handleLearned)
		r.Delete("/learned", s.handleClearLearned)
		r.Get("/runs/{runID}", s.handleRun)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		redact.Logf("fieldsense listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// --- Handlers ---

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

type classifyRequest struct {
	URL    string        `json:"url"`
	Fields []field.Field `json:"fields"`
}

type classifyResponse struct {
	RunID    string             `json:"run_id"`
	Platform field.Platform     `json:"platform"`
	Outcomes []pipeline.Outcome `json:"outcomes"`
	Partial  bool               `json:"partial,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req classifyRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "invalid_request_error")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_request_error")
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "request body must be a single JSON object", "invalid_request_error")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields must not be empty", "invalid_request_error")
		return
	}

	out, err := s.pipeline.Run(r.Context(), req.URL, req.Fields)
	resp := classifyResponse{
		Platform: field.DetectPlatform(req.URL),
		Outcomes: out,
	}
	if len(out) > 0 {
		resp.RunID = out[0].RunID
	}
	if err != nil {
		// Fields classified before cancellation are still returned.
		redact.Logf("server: classify interrupted after %d of %d fields: %v", len(out), len(req.Fields), err)
		resp.Partial = true
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Cache   cache.Stats      `json:"cache"`
	HitRate float64          `json:"hit_rate"`
	Learned int              `json:"learned_patterns"`
	Runtime int              `json:"runtime_entries"`
	Journal *journal.Summary `json:"journal,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c := s.pipeline.Cache()
	st := c.Stats()
	resp := statsResponse{Cache: st, HitRate: st.HitRate(), Runtime: c.Runtime().Len()}
	if store := c.Learned(); store != nil {
		resp.Learned = store.Len()
	}
	if j := s.pipeline.Journal(); j != nil {
		sum, err := j.Summary(r.Context())
		if err != nil {
			redact.Logf("server: journal summary: %v", err)
		} else {
			resp.Journal = &sum
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type learnedResponse struct {
	Path     string               `json:"path"`
	Count    int                  `json:"count"`
	Patterns []learned.KeyedEntry `json:"patterns"`
}

func (s *Server) handleLearned(w http.ResponseWriter, r *http.Request) {
	store := s.pipeline.Cache().Learned()
	if store == nil {
		writeJSON(w, http.StatusOK, learnedResponse{Patterns: []learned.KeyedEntry{}})
		return
	}
	entries := store.Entries()
	if entries == nil {
		entries = []learned.KeyedEntry{}
	}
	writeJSON(w, http.StatusOK, learnedResponse{Path: store.Path(), Count: len(entries), Patterns: entries})
}

func (s *Server) handleClearLearned(w http.ResponseWriter, r *http.Request) {
	store := s.pipeline.Cache().Learned()
	if store == nil {
		writeError(w, http.StatusNotFound, "no learned store configured", "not_found")
		return
	}
	if err := store.Clear(); err != nil {
		redact.Logf("server: clear learned: %v", err)
		writeError(w, http.StatusInternalServerError, "could not clear learned patterns", "storage_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	j := s.pipeline.Journal()
	if j == nil {
		writeError(w, http.StatusNotFound, "journal disabled", "not_found")
		return
	}
	runID := chi.URLParam(r, "runID")
	rows, err := j.Run(r.Context(), runID)
	if err != nil {
		redact.Logf("server: journal run %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, "could not read journal", "storage_error")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "unknown run", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: typ}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		redact.Logf("server: failed to write response: %v", err)
	}
}
