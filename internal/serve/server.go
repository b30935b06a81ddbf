// Package serve exposes story transforms over HTTP: a single-shot JSON
// endpoint and an incremental event-stream endpoint.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samsaffron/tale-llm/internal/config"
	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/transform"
	"github.com/samsaffron/tale-llm/internal/wire"
)

const (
	TransformPath       = "/api/transform-story"
	TransformStreamPath = "/api/transform-story-stream"
	HealthPath          = "/healthz"

	shutdownTimeout = 10 * time.Second
)

// Server serves transform requests backed by a single provider.
type Server struct {
	provider llm.Provider
	cfg      config.ServeConfig
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener
}

func New(provider llm.Provider, cfg config.ServeConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	return &Server{provider: provider, cfg: cfg, logger: logger}
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(TransformPath, s.auth(s.handleTransform))
	mux.HandleFunc(TransformStreamPath, s.auth(s.handleTransformStream))
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind to %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String(), "provider", s.provider.Name())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down, waiting for in-flight streams until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
		return err
	}
	return nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "provider": s.provider.Name()})
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	log := s.requestLogger(req, "single")

	text, err := transform.RunOnce(r.Context(), s.provider, req)
	if err != nil {
		if story.IsValidationError(err) {
			log.Info("rejected", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		log.Warn("generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	log.Info("completed", "bytes", len(text))
	writeJSON(w, http.StatusOK, map[string]any{"transformedText": text})
}

func (s *Server) handleTransformStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	log := s.requestLogger(req, "stream")

	if err := req.Validate(); err != nil {
		log.Info("rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", wire.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := transform.SinkFunc(func(e wire.Event) error {
		if err := wire.Encode(w, e); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	summary, err := transform.NewRelay(s.provider).Run(r.Context(), req, sink)
	attrs := []any{"state", summary.State.String(), "fragments", summary.Fragments, "bytes", summary.Bytes}
	switch {
	case err != nil:
		log.Warn("stream aborted", append(attrs, "error", err)...)
	case summary.Err != nil:
		log.Warn("generation failed", append(attrs, "error", summary.Err)...)
	default:
		log.Info("completed", attrs...)
	}
}

// decode reads a JSON request body, writing the error response itself when
// the body is missing, malformed or too large.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (story.Request, bool) {
	var req story.Request
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return req, false
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"})
			return req, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
		return req, false
	}
	return req, true
}

// requestLogger tags log lines for one request. Story text is never logged.
func (s *Server) requestLogger(req story.Request, mode string) *slog.Logger {
	return s.logger.With(
		"request_id", uuid.NewString(),
		"mode", mode,
		"text_len", len(req.Text),
		"replacements", len(req.CompletePairs()),
		"has_context", req.HasContext(),
	)
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	token := strings.TrimSpace(s.cfg.Token)
	if token == "" {
		return true
	}
	value := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	return strings.TrimSpace(strings.TrimPrefix(value, prefix)) == token
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
