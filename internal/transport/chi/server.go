// Package chi is the HTTP transport: the chat endpoint, health, metrics,
// and bearer-token authentication.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
	chatuc "github.com/harborlane/retaildex/internal/usecase/chat"
	healthuc "github.com/harborlane/retaildex/internal/usecase/health"
)

// ChatService answers one conversation turn.
type ChatService interface {
	Chat(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error)
}

// HealthService reports component availability.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	chat          ChatService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(chat ChatService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		chat:   chat,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotInitialized, http.StatusServiceUnavailable, "search index unavailable"),
		sentinelHandler(domain.ErrAccountNotFound, http.StatusServiceUnavailable, "tenant data not seeded"),
	}
	return s
}

// Mount registers the routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// handleChat handles POST /api/v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	for _, m := range req.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			writeError(w, http.StatusBadRequest, "message roles must be user or assistant")
			return
		}
	}

	resp, err := s.chat.Chat(r.Context(), req.Messages)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleDomainError walks the handler chain; unmatched errors become a
// generic 500 so provider details never reach the client.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("Chat request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
