package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	factoriollm "github.com/nerdpudding/factorio-llm"
	"github.com/nerdpudding/factorio-llm/internal/config"
	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/adapters/httpapi"
	redislock "github.com/nerdpudding/factorio-llm/pkg/adapters/redis"
	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/catalog"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
	"github.com/nerdpudding/factorio-llm/pkg/ollama"
	"github.com/nerdpudding/factorio-llm/pkg/rcon"
	"github.com/nerdpudding/factorio-llm/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the bridge in server mode, exposing sessions, chat, game state,
an SSE event stream and Prometheus metrics as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")
		redisAddr, _ := cmd.Flags().GetString("redis")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		metrics := httpapi.NewMetrics()
		console := rcon.New(cfg.RCONHost, cfg.RCONPort, cfg.RCONPassword,
			rcon.WithLogger(logger),
			rcon.WithObserver(metrics.ConsoleObserver()),
		)
		g := game.New(console, game.WithLogger(logger))
		dispatcher := catalog.New(g, catalog.WithLogger(logger))
		llm := ollama.New(cfg.OllamaURL, ollama.WithAPIKey(cfg.APIKey), ollama.WithLogger(logger))
		streams := httpapi.NewEventStream(logger)

		factory := func(sessionID string) *agent.Agent {
			return agent.New(llm, dispatcher,
				agent.WithModel(cfg.Model),
				agent.WithModelOptions(cfg.Options),
				agent.WithThink(cfg.Think),
				agent.WithSnapshot(g.StateLine),
				agent.WithMaxToolIterations(cfg.MaxToolIterations),
				agent.WithMaxHistoryMessages(cfg.MaxHistoryMessages),
				agent.WithHooks(domain.MergeHooks(streams.Hooks(), metrics.Hooks())),
				agent.WithSessionID(sessionID),
				agent.WithLogger(logger),
			)
		}

		managerOpts := []session.Option{session.WithLogger(logger)}
		if redisAddr != "" {
			client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
			managerOpts = append(managerOpts, session.WithLocker(redislock.NewLocker(client, "factorio-llm:")))
			logger.Info("distributed session locking enabled", "redis", redisAddr)
		}
		sessions := session.NewManager(factory, managerOpts...)

		if err := g.Connect(context.Background()); err != nil {
			fmt.Printf("Error: cannot connect to Factorio: %v\n", err)
			os.Exit(1)
		}
		if tick, err := g.Tick(context.Background()); err == nil {
			fmt.Printf("Connected to Factorio (tick: %d)\n", tick)
		}

		api := httpapi.New(sessions, g, dispatcher,
			httpapi.WithLogger(logger),
			httpapi.WithModelName(cfg.Model),
			httpapi.WithVersion(strings.TrimSpace(factoriollm.Version)),
			httpapi.WithEvents(streams),
			httpapi.WithMetrics(metrics),
		)

		srv := &http.Server{
			Addr:    addr,
			Handler: api.Handler(),
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting bridge server on %s\n", srv.Addr)
			fmt.Printf("Serving model: %s\n", cfg.Model)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nShutting down (%v)\n", sig)

			// In-flight requests get a short grace period before the hard stop.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown incomplete after %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Forced close failed: %v\n", err)
				}
			}

			if err := llm.Unload(context.Background(), cfg.Model); err != nil {
				logger.Warn("model unload failed", "model", cfg.Model, "err", err)
			}
			if err := g.Close(); err != nil {
				logger.Warn("close game link", "err", err)
			}
			fmt.Println("Bridge server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for distributed session locks (host:port)")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
}
