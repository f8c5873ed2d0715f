// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"

	"github.com/gokkerz/roulette/internal/chat"
	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/stream"
	"github.com/gokkerz/roulette/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// ChatPath is the streaming chat route.
	ChatPath = "/api/chat"

	// ModelsPath lists supported models.
	ModelsPath = "/api/models"

	// DefaultVersion is reported when no version is set.
	DefaultVersion = "dev"
)

// ============================================================================
// SERVER
// ============================================================================

// Server exposes the chat service over HTTP.
type Server struct {
	cfg      config.ServerConfig
	chat     *chat.Service
	recorder *telemetry.Recorder
	log      logr.Logger
	version  string
	started  time.Time

	// configured reports whether the provider has credentials
	configured bool

	router  *http.ServeMux
	limiter *RateLimiter
	server  *http.Server

	mu sync.Mutex
}

// New creates a Server for svc.
func New(cfg config.ServerConfig, svc *chat.Service) *Server {
	return &Server{
		cfg:        cfg,
		chat:       svc,
		log:        logr.Discard(),
		version:    DefaultVersion,
		started:    time.Now(),
		configured: true,
	}
}

// WithLogger sets the logger.
func (s *Server) WithLogger(log logr.Logger) *Server {
	s.log = log
	return s
}

// WithRecorder sets the telemetry recorder served at /stats. It should be
// the recorder the chat service writes to.
func (s *Server) WithRecorder(rec *telemetry.Recorder) *Server {
	s.recorder = rec
	return s
}

// WithVersion sets the version reported by /health.
func (s *Server) WithVersion(v string) *Server {
	s.version = v
	return s
}

// WithProviderConfigured sets whether /health reports provider credentials.
func (s *Server) WithProviderConfigured(ok bool) *Server {
	s.configured = ok
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr()
}

// ============================================================================
// ROUTES
// ============================================================================

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.router = http.NewServeMux()

	var chatHandler http.Handler = http.HandlerFunc(s.handleChat)
	if s.cfg.RateLimitPerMinute > 0 {
		if s.limiter == nil {
			s.limiter = NewRateLimiter(s.cfg.RateLimitPerMinute, time.Minute)
		}
		chatHandler = RateLimitMiddleware(s.limiter, s.log)(chatHandler)
	}

	s.router.Handle("POST "+ChatPath, chatHandler)
	s.router.HandleFunc("GET "+ModelsPath, s.handleModels)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)

	return Chain(
		RecoveryMiddleware(s.log),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.log),
		CORSMiddleware(s.cfg.AllowedOrigins),
	)(s.router)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat. Rejections are answered with a JSON
// error before any streaming; accepted requests stream data frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)

	var req stream.Request
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reject(w, req, http.StatusRequestEntityTooLarge, "request_too_large", "Request body too large")
			return
		}
		s.reject(w, req, http.StatusBadRequest, chat.CodeInvalidBody, "Failed to read request body")
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.V(1).Info("REQUEST_DECODE_FAILED", "error", err.Error())
		s.reject(w, req, http.StatusBadRequest, chat.CodeInvalidBody, "Invalid request format")
		return
	}

	ex, err := s.chat.Validate(req)
	if err != nil {
		if ie, ok := chat.AsInputError(err); ok {
			s.log.V(1).Info("REQUEST_REJECTED", "code", ie.Code, "reason", ie.Message)
			s.reject(w, req, http.StatusBadRequest, ie.Code, ie.Message)
			return
		}
		s.log.Error(err, "REQUEST_VALIDATION_FAILED")
		writeError(w, http.StatusInternalServerError, "server_error", "internal", chat.MsgGeneric)
		return
	}

	stream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	s.chat.Stream(r.Context(), ex, stream.NewWriter(w))
}

// reject answers 4xx and records the rejection.
func (s *Server) reject(w http.ResponseWriter, req stream.Request, status int, code, message string) {
	if s.recorder != nil {
		s.recorder.Record(telemetry.Exchange{
			Model:     string(req.SelectedModel),
			StartedAt: time.Now(),
			Outcome:   telemetry.OutcomeRejected,
		})
	}
	writeError(w, status, "invalid_request_error", code, message)
}

// ============================================================================
// MODELS HANDLER
// ============================================================================

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Default model.ID          `json:"default"`
	Models  []model.ModelInfo `json:"models"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.chat.Models()
	writeJSON(w, http.StatusOK, ModelsResponse{
		Default: models.Default(),
		Models:  models.All(),
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string `json:"status"`
	Version            string `json:"version"`
	ProviderConfigured bool   `json:"provider_configured"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:             "ok",
		Version:            s.version,
		ProviderConfigured: s.configured,
		UptimeSeconds:      int64(time.Since(s.started).Seconds()),
	}
	if !s.configured {
		health.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	UptimeSeconds int64               `json:"uptime_seconds"`
	Telemetry     *telemetry.Snapshot `json:"telemetry,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{UptimeSeconds: int64(time.Since(s.started).Seconds())}
	if s.recorder != nil {
		snap := s.recorder.Snapshot()
		resp.Telemetry = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	handler := s.Handler()

	s.mu.Lock()
	// No WriteTimeout: streams are bounded by the exchange budget
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("SERVER_START", "addr", ln.Addr().String(), "version", s.version, "provider_configured", s.configured)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for open streams until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	limiter := s.limiter
	s.mu.Unlock()

	if limiter != nil {
		limiter.Stop()
	}
	if srv == nil {
		return nil
	}

	s.log.Info("SERVER_SHUTDOWN", "reason", "graceful")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, typ, code, message string) {
	writeJSON(w, status, stream.ErrorBody{Error: stream.ErrorDetail{
		Message: message,
		Type:    typ,
		Code:    code,
	}})
}
