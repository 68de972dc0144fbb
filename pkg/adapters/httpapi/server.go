// Package httpapi serves the bridge over HTTP: session-scoped chat, the
// bridge status, the tool catalog, a server-sent event stream of the
// conversation loop, and prometheus metrics. The OpenAPI document
// describing the surface is embedded and served alongside it.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
	"github.com/nerdpudding/factorio-llm/pkg/session"
)

const defaultEntityLimit = 50

// Server wires the session registry, the game facade and the tool catalog
// into the HTTP surface.
type Server struct {
	sessions   *session.Manager
	game       *game.Client
	dispatcher ports.ToolDispatcher
	model      string
	version    string
	logger     *slog.Logger
	streams    *EventStream
	metrics    *Metrics

	mu        sync.Mutex
	defaultID string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithModelName names the active model in status responses.
func WithModelName(model string) Option {
	return func(s *Server) { s.model = model }
}

// WithVersion sets the reported bridge version.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithEvents attaches a shared event stream. The caller wires its Hooks
// into the session factory so exchanges publish onto it.
func WithEvents(streams *EventStream) Option {
	return func(s *Server) { s.streams = streams }
}

// WithMetrics attaches a shared metrics set serving /metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// New creates the server. Events and metrics default to fresh instances
// when not supplied.
func New(sessions *session.Manager, g *game.Client, dispatcher ports.ToolDispatcher, opts ...Option) *Server {
	s := &Server{
		sessions:   sessions,
		game:       g,
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewEventStream(s.logger)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Events returns the stream exchanges publish lifecycle events onto.
func (s *Server) Events() *EventStream { return s.streams }

// Metrics returns the collector set behind /metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the routed handler with CORS enabled.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", s.handleOpenAPI)
	r.Get("/swagger", s.handleSwagger)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/tools", s.handleTools)
	r.Get("/api/entities", s.handleEntities)
	r.Get("/api/events", s.handleEvents)
	r.Post("/api/chat", s.handleDefaultChat)
	r.Post("/api/sessions", s.handleCreateSession)
	r.Post("/api/sessions/{sessionID}/chat", s.handleSessionChat)
	r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(specYAML)
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(swaggerHTML))
}

type statusResponse struct {
	domain.Status
	Version    string `json:"version,omitempty"`
	APIVersion string `json:"api_version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status: domain.Status{
			Connected: s.game.Connected(),
			Model:     s.model,
			Tools:     len(s.dispatcher.Definitions()),
		},
		Version:    strings.TrimSpace(s.version),
		APIVersion: apiVersion(),
	}
	if resp.Connected {
		ctx := r.Context()
		if tick, err := s.game.Tick(ctx); err == nil {
			resp.Tick = tick
		}
		if pos, err := s.game.PlayerPosition(ctx); err == nil {
			resp.Position = pos
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dispatcher.Definitions())
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	var entityType string
	if err := runtime.BindQueryParameter("form", true, false, "type", r.URL.Query(), &entityType); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parameter type: %v", err))
		return
	}
	limit := defaultEntityLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parameter limit: %v", err))
		return
	}

	entities, err := s.game.ListEntities(r.Context(), entityType, limit)
	if err != nil {
		s.logger.Warn("entity listing failed", "err", err)
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSessionChat(w http.ResponseWriter, r *http.Request) {
	s.chat(w, r, chi.URLParam(r, "sessionID"))
}

func (s *Server) handleDefaultChat(w http.ResponseWriter, r *http.Request) {
	s.chat(w, r, s.defaultSession().ID)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request, sessionID string) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	message, err := agent.SanitizeInput(body.Message)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := s.sessions.Chat(r.Context(), sessionID, message)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("exchange failed", "session_id", sessionID, "err", err)
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"reply": answer})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var sessionID string
	if err := runtime.BindQueryParameter("form", true, false, "session_id", r.URL.Query(), &sessionID); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parameter session_id: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			// Flush whatever was queued before the client went away.
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					fmt.Fprintf(w, "data: %s\n\n", msg)
					flusher.Flush()
				default:
					return
				}
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// defaultSession lazily creates the shared session behind POST /api/chat.
func (s *Server) defaultSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaultID != "" {
		if sess, err := s.sessions.Get(s.defaultID); err == nil {
			return sess
		}
	}
	sess := s.sessions.Create()
	s.defaultID = sess.ID
	return sess
}

// statusFor maps bridge failures to response codes: bad arguments are the
// caller's fault, console failures are upstream, a slow model is a gateway
// timeout.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindArgument:
		return http.StatusBadRequest
	case domain.KindUnreachable, domain.KindLinkLost:
		return http.StatusBadGateway
	case domain.KindChatTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Factorio LLM Bridge API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.17.14/swagger-ui.css">
</head>
<body>
  <div id="ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5.17.14/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      SwaggerUIBundle({ url: "/openapi.yaml", dom_id: "#ui" });
    };
  </script>
</body>
</html>
`
