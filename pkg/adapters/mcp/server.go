// Package mcp exposes the bridge's tool catalog to Model Context Protocol
// clients, over stdio for editor integrations and SSE for remote ones.
// Tools are generated from the catalog definitions, so the MCP surface
// always matches what the chat model sees.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
)

const statusURI = "factorio://status"

// Server wraps the dispatcher and the game facade as an MCP server.
type Server struct {
	dispatcher ports.ToolDispatcher
	game       *game.Client
	model      string
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithModelName names the active model in the status resource.
func WithModelName(model string) Option {
	return func(s *Server) { s.model = model }
}

// NewServer builds the MCP server. version is reported during the MCP
// handshake.
func NewServer(dispatcher ports.ToolDispatcher, g *game.Client, version string, opts ...Option) *Server {
	s := &Server{
		dispatcher: dispatcher,
		game:       g,
		logger:     logging.NewNop(),
		mcpServer:  server.NewMCPServer("factorio-llm", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio runs the server on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE runs the server over SSE on the given port until ctx is
// canceled, then shuts down gracefully.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening", "transport", "sse", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mcp transport: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, def := range s.dispatcher.Definitions() {
		name := def.Function.Name
		tool := mcp.NewTool(name, toolOptions(def)...)
		s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result := s.dispatcher.Dispatch(ctx, name, request.GetArguments())
			if strings.HasPrefix(result, "Error:") {
				return mcp.NewToolResultError(result), nil
			}
			return mcp.NewToolResultText(result), nil
		})
	}
}

// toolOptions converts one catalog definition's parameter schema into
// mcp-go tool options. Properties register in name order so the advertised
// schema is stable.
func toolOptions(def domain.ToolDefinition) []mcp.ToolOption {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Function.Description)}

	props, _ := def.Function.Parameters["properties"].(map[string]any)
	required := map[string]bool{}
	if reqs, ok := def.Function.Parameters["required"].([]string); ok {
		for _, r := range reqs {
			required[r] = true
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, _ := props[name].(map[string]any)
		desc, _ := spec["description"].(string)

		propOpts := []mcp.PropertyOption{mcp.Description(desc)}
		if required[name] {
			propOpts = append(propOpts, mcp.Required())
		}

		switch spec["type"] {
		case "integer", "number":
			opts = append(opts, mcp.WithNumber(name, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(name, propOpts...))
		}
	}
	return opts
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(statusURI, "Bridge Status",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		status := domain.Status{
			Connected: s.game.Connected(),
			Model:     s.model,
			Tools:     len(s.dispatcher.Definitions()),
		}
		if status.Connected {
			if tick, err := s.game.Tick(ctx); err == nil {
				status.Tick = tick
			}
			if pos, err := s.game.PlayerPosition(ctx); err == nil {
				status.Position = pos
			}
		}

		payload, err := json.Marshal(status)
		if err != nil {
			return nil, fmt.Errorf("marshal status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      statusURI,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	})
}
