// Package server exposes the caching client over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pario-ai/llmemo/pkg/client"
	"github.com/pario-ai/llmemo/pkg/logging"
	"github.com/pario-ai/llmemo/pkg/ollama"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Server is the llmemo HTTP API.
type Server struct {
	addr   string
	client *client.Client
	log    logging.Logger
	mux    *http.ServeMux
}

// New creates a Server for c. A nil metrics handler leaves /metrics unrouted.
func New(addr string, c *client.Client, metrics http.Handler, log logging.Logger) *Server {
	s := &Server{
		addr:   addr,
		client: c,
		log:    logging.OrNop(log),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/ask", s.handleAsk(client.VariantNormal))
	s.mux.HandleFunc("POST /v1/ask/fast", s.handleAsk(client.VariantFast))
	s.mux.HandleFunc("POST /v1/ask/batch", s.handleBatch)
	s.mux.HandleFunc("GET /v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /v1/cache", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /v1/cache", s.handleCacheClear)
	s.mux.HandleFunc("POST /v1/cache/evict", s.handleCacheEvict)
	s.mux.HandleFunc("PUT /v1/model", s.handleSetModel)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("llmemo listening", logging.Fields{"addr": s.addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

type askRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	Variant   string `json:"variant"`
	Model     string `json:"model"`
	CacheHit  bool   `json:"cache_hit"`
	LatencyMs int64  `json:"latency_ms"`
}

func (s *Server) handleAsk(v client.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			writeJSONError(w, http.StatusBadRequest, "question is required")
			return
		}

		a, err := s.client.AskWithContext(r.Context(), v, req.Context, req.Question, useCache(req.UseCache))
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}

		if a.CacheHit {
			w.Header().Set("X-Llmemo-Cache", "hit")
		} else {
			w.Header().Set("X-Llmemo-Cache", "miss")
		}
		writeJSON(w, http.StatusOK, askResponse{
			Answer:    a.Text,
			Variant:   string(a.Variant),
			Model:     a.Model,
			CacheHit:  a.CacheHit,
			LatencyMs: a.Latency.Milliseconds(),
		})
	}
}

type batchRequest struct {
	Questions []string `json:"questions"`
	Variant   string   `json:"variant,omitempty"`
	UseCache  *bool    `json:"use_cache,omitempty"`
}

type batchResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Questions) == 0 {
		writeJSONError(w, http.StatusBadRequest, "questions is required")
		return
	}
	v, err := client.ParseVariant(req.Variant)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := s.client.AskAll(r.Context(), v, req.Questions, useCache(req.UseCache))
	out := make([]batchResult, len(results))
	for i, res := range results {
		out[i] = batchResult{Question: res.Question, Answer: res.Answer}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.Status(r.Context()))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st := s.client.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          st.Total,
		"valid":          st.Valid,
		"expired":        st.Expired,
		"total_accesses": st.TotalAccesses,
		"max_capacity":   st.MaxCapacity,
		"hits":           st.Hits,
		"misses":         st.Misses,
		"evictions":      st.Evictions,
		"hit_rate":       st.HitRate(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.client.ClearCache()})
}

func (s *Server) handleCacheEvict(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.Optimize())
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.client.SetModel(strings.TrimSpace(req.Model)); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"model": s.client.Model()})
}

func useCache(p *bool) bool {
	return p == nil || *p
}

// statusFor maps a backend failure onto an HTTP status.
func statusFor(err error) int {
	var se *ollama.StatusError
	switch {
	case errors.Is(err, ollama.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ollama.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ollama.ErrUnavailable),
		errors.Is(err, ollama.ErrEmptyResponse),
		errors.Is(err, ollama.ErrInvalidResponse),
		errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Message: message, Type: "llmemo_error", Code: code}})
}
