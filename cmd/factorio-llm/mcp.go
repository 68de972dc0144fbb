package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	factoriollm "github.com/nerdpudding/factorio-llm"
	"github.com/nerdpudding/factorio-llm/internal/config"
	"github.com/nerdpudding/factorio-llm/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the Factorio tool catalog over MCP",
	Long: `Runs the bridge as a Model Context Protocol server so external MCP
clients (Claude Desktop, IDE agents) drive the game tools directly,
bypassing the built-in chat loop.

Transports:
- stdio (default): JSON-RPC over stdin/stdout, for clients that spawn the process.
- sse: HTTP with Server-Sent Events, for clients connecting over the network.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}

		// Stdout belongs to JSON-RPC in stdio mode; everything else goes
		// to stderr.
		opts := &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		bridge, err := factoriollm.New(
			factoriollm.WithAddress(cfg.RCONHost, cfg.RCONPort, cfg.RCONPassword),
			factoriollm.WithOllama(cfg.OllamaURL, cfg.APIKey),
			factoriollm.WithModel(cfg.Model),
			factoriollm.WithModelOptions(cfg.Options),
			factoriollm.WithLogger(logger),
		)
		if err != nil {
			log.Fatalf("Error initializing bridge: %v", err)
		}
		if err := bridge.Connect(context.Background()); err != nil {
			log.Fatalf("Error connecting to Factorio: %v", err)
		}
		defer bridge.Close()

		srv := mcp.NewServer(bridge.Dispatcher(), bridge.Game(), factoriollm.Version,
			mcp.WithModelName(cfg.Model),
			mcp.WithLogger(logger),
		)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("Starting MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting MCP server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				// ErrServerClosed is the normal shutdown path.
				if err != http.ErrServerClosed {
					slog.Error("MCP server execution failed", "error", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("unsupported transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "MCP transport: stdio or sse")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
