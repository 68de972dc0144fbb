package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	factoriollm "github.com/nerdpudding/factorio-llm"
	"github.com/nerdpudding/factorio-llm/internal/config"
	"github.com/nerdpudding/factorio-llm/internal/presentation/tui"
	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/catalog"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
	"github.com/nerdpudding/factorio-llm/pkg/ollama"
	"github.com/nerdpudding/factorio-llm/pkg/rcon"
)

const helpText = `
Available commands:
  /help           - Show this help message
  /tools          - List available Factorio tools
  /status         - Show connection status and player position
  /model          - Show current model info
  /models         - List available model profiles
  /switch <name>  - Switch to a different model profile
  /clear          - Clear conversation history
  /debug          - Toggle debug mode (show tool calls)
  /quit           - Exit the chat
  /exit           - Exit the chat
`

// ChatOptions carries the chat command's flag values. Model, Think and
// NumCtx override the loaded config for this session only.
type ChatOptions struct {
	ConfigPath string
	Model      string
	Cloud      bool
	Think      *bool
	NumCtx     int
	Debug      bool
}

// chatSession holds everything a running chat needs. The llm client and
// agent are rebuilt on /switch; the game link and dispatcher live for
// the whole session.
type chatSession struct {
	cfg        *config.Config
	llm        *ollama.Client
	game       *game.Client
	dispatcher *catalog.Dispatcher
	agent      *agent.Agent
	logger     *slog.Logger
	level      *slog.LevelVar
	debug      bool
	render     func(string) (string, error)
	out        io.Writer
}

// RunChat drives the interactive session until /quit, EOF or
// cancellation. User-facing errors are printed here; the returned error
// only tells the command to exit non-zero.
func RunChat(ctx context.Context, opts ChatOptions) error {
	out := os.Stdout
	tui.PrintBanner(factoriollm.Version)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(out, red(fmt.Sprintf("[ERROR] %v", err)))
		return err
	}
	if err := applyOverrides(cfg, opts, out); err != nil {
		return err
	}

	level := newLevelVar(opts.Debug)
	logger := newLogger(level)

	fmt.Fprintln(out, dim("\nConnecting to Ollama..."))
	llm := ollama.New(cfg.OllamaURL, ollama.WithAPIKey(cfg.APIKey), ollama.WithLogger(logger))
	if err := llm.Available(ctx); err != nil {
		fmt.Fprintln(out, red("[ERROR] Cannot connect to Ollama. Is it running?"))
		return err
	}
	fmt.Fprintf(out, "Using model: %s\n", cfg.Model)

	fmt.Fprintln(out, dim("Connecting to Factorio..."))
	console := rcon.New(cfg.RCONHost, cfg.RCONPort, cfg.RCONPassword, rcon.WithLogger(logger))
	g := game.New(console, game.WithLogger(logger))
	dispatcher := catalog.New(g, catalog.WithLogger(logger))

	tick, pos, err := connectGame(ctx, g)
	if err != nil {
		fmt.Fprintln(out, red(fmt.Sprintf("[ERROR] Cannot connect to Factorio: %v", err)))
		fmt.Fprintln(out, red("        Make sure Factorio is running in Host Game mode"))
		return err
	}
	fmt.Fprintf(out, "Connected to Factorio (tick: %d, %d tools available)\n", tick, len(dispatcher.Definitions()))
	fmt.Fprintf(out, "Player position: X=%.1f, Y=%.1f\n", pos.X, pos.Y)

	s := &chatSession{
		cfg:        cfg,
		llm:        llm,
		game:       g,
		dispatcher: dispatcher,
		logger:     logger,
		level:      level,
		debug:      opts.Debug,
		out:        out,
	}
	if tui.Interactive(out) {
		s.render = tui.NewRenderer()
	}
	s.buildAgent()

	fmt.Fprintln(out, "\nType /help for commands, /quit to exit.")
	fmt.Fprintln(out)

	history := openPromptHistory(HistoryFileName, cfg.MaxPromptHistory)
	defer history.Close()

	reader := newLineReader(os.Stdin, out)
	s.loop(ctx, reader, history)
	s.cleanup()
	return nil
}

// applyOverrides folds the command flags into the loaded config.
func applyOverrides(cfg *config.Config, opts ChatOptions, out io.Writer) error {
	if opts.Cloud {
		if cfg.APIKey == "" {
			fmt.Fprintln(out, red("[ERROR] API key required for cloud mode."))
			fmt.Fprintln(out, "Set OLLAMA_API_KEY or add ollama_api_key to config.yaml.")
			fmt.Fprintln(out, "Get your API key at: https://ollama.com (account settings)")
			return errors.New("missing api key")
		}
		cfg.OllamaURL = config.CloudAPIURL
		fmt.Fprintln(out, green("Configured for Ollama Cloud."))
		fmt.Fprintln(out, dim("API endpoint: "+config.CloudAPIURL))
	}
	if opts.Model != "" {
		if len(cfg.Profiles) > 0 {
			if err := cfg.SwitchProfile(opts.Model); err != nil {
				fmt.Fprintln(out, red(fmt.Sprintf("[ERROR] %v", err)))
				return err
			}
		} else {
			cfg.Model = opts.Model
		}
	}
	if opts.Think != nil {
		cfg.Think = opts.Think
	}
	if opts.NumCtx > 0 {
		cfg.Options.NumCtx = opts.NumCtx
	}
	return nil
}

func connectGame(ctx context.Context, g *game.Client) (int, domain.Position, error) {
	if err := g.Connect(ctx); err != nil {
		return 0, domain.Position{}, err
	}
	tick, err := g.Tick(ctx)
	if err != nil {
		return 0, domain.Position{}, err
	}
	pos, err := g.PlayerPosition(ctx)
	if err != nil {
		return 0, domain.Position{}, err
	}
	return tick, pos, nil
}

func (s *chatSession) buildAgent() {
	s.agent = agent.New(s.llm, s.dispatcher,
		agent.WithModel(s.cfg.Model),
		agent.WithModelOptions(s.cfg.Options),
		agent.WithThink(s.cfg.Think),
		agent.WithSnapshot(s.game.StateLine),
		agent.WithMaxToolIterations(s.cfg.MaxToolIterations),
		agent.WithMaxHistoryMessages(s.cfg.MaxHistoryMessages),
		agent.WithHooks(debugHooks(s.logger)),
		agent.WithLogger(s.logger),
	)
}

func (s *chatSession) loop(ctx context.Context, reader *lineReader, history *promptHistory) {
	for {
		line, err := reader.ReadLine(ctx, cyan("You> "))
		if err != nil {
			fmt.Fprintln(s.out)
			return
		}
		if line == "" {
			continue
		}
		history.Append(line)

		if strings.HasPrefix(line, "/") {
			if s.handleCommand(ctx, line) {
				return
			}
			continue
		}

		fmt.Fprint(s.out, "Thinking...")
		reply, err := s.agent.Chat(ctx, line)
		fmt.Fprint(s.out, "\r"+strings.Repeat(" ", 20)+"\r")
		if err != nil {
			if isInterrupted(err) {
				fmt.Fprintln(s.out)
				return
			}
			s.handleChatError(ctx, err)
			continue
		}
		s.printResponse(reply)
	}
}

// handleCommand runs one slash command. Returns true when the session
// should end.
func (s *chatSession) handleCommand(ctx context.Context, line string) bool {
	cmd := strings.ToLower(line)
	switch {
	case cmd == "/quit" || cmd == "/exit":
		return true
	case cmd == "/help":
		fmt.Fprint(s.out, helpText, "\n")
	case cmd == "/tools":
		s.showTools()
	case cmd == "/model":
		s.showModel()
	case cmd == "/models":
		s.showModels()
	case strings.HasPrefix(cmd, "/switch "):
		s.switchProfile(ctx, strings.TrimSpace(line[len("/switch "):]))
	case cmd == "/switch":
		s.printSwitchUsage()
	case cmd == "/clear":
		s.agent.Reset()
		fmt.Fprintln(s.out, "Conversation history cleared.")
		fmt.Fprintln(s.out)
	case cmd == "/debug":
		s.toggleDebug()
	case cmd == "/status":
		s.showStatus(ctx)
	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", line)
		fmt.Fprintln(s.out, "Type /help for available commands.")
		fmt.Fprintln(s.out)
	}
	return false
}

func (s *chatSession) showTools() {
	fmt.Fprintln(s.out, "\nAvailable Factorio tools:")
	fmt.Fprintln(s.out, strings.Repeat("-", 50))
	for _, def := range s.dispatcher.Definitions() {
		fmt.Fprintf(s.out, "  %s\n", def.Function.Name)
		fmt.Fprintf(s.out, "    %s\n", firstSentence(def.Function.Description))
	}
	fmt.Fprintln(s.out)
}

func (s *chatSession) showModel() {
	fmt.Fprintf(s.out, "\nModel: %s\n", s.cfg.Model)
	if s.cfg.ActiveKey != "" {
		fmt.Fprintf(s.out, "Profile: %s\n", s.cfg.ActiveKey)
	}
	fmt.Fprintf(s.out, "Temperature: %g\n", s.cfg.Options.Temperature)
	fmt.Fprintf(s.out, "Top-p: %g\n", s.cfg.Options.TopP)
	fmt.Fprintf(s.out, "Context window: %d\n", s.cfg.Options.NumCtx)
	fmt.Fprintln(s.out)
}

func (s *chatSession) showModels() {
	if len(s.cfg.Profiles) == 0 {
		fmt.Fprintln(s.out, "\nNo model profiles configured (using legacy config format).")
		fmt.Fprintln(s.out)
		return
	}
	fmt.Fprintln(s.out, "\nAvailable model profiles:")
	for _, key := range s.cfg.ProfileKeys() {
		marker := " "
		if key == s.cfg.ActiveKey {
			marker = "*"
		}
		fmt.Fprintf(s.out, "  %s %s: %s\n", marker, key, s.cfg.Profiles[key].Name)
	}
	fmt.Fprintln(s.out, "\nUse /switch <name> to change models.")
	fmt.Fprintln(s.out)
}

func (s *chatSession) showStatus(ctx context.Context) {
	tick, err := s.game.Tick(ctx)
	var pos domain.Position
	if err == nil {
		pos, err = s.game.PlayerPosition(ctx)
	}
	if err != nil {
		fmt.Fprintln(s.out, red(fmt.Sprintf("\n[ERROR] Connection issue: %v", err)))
		fmt.Fprintln(s.out)
		return
	}
	fmt.Fprintln(s.out, "\nConnection: OK")
	fmt.Fprintf(s.out, "Game tick: %d\n", tick)
	fmt.Fprintf(s.out, "Player: X=%.1f, Y=%.1f\n", pos.X, pos.Y)
	fmt.Fprintf(s.out, "Model: %s\n", s.cfg.Model)
	fmt.Fprintf(s.out, "Tools: %d available\n", len(s.dispatcher.Definitions()))
	fmt.Fprintf(s.out, "Debug: %s\n", onOff(s.debug))
	fmt.Fprintln(s.out)
}

// switchProfile unloads the running model, activates the named profile
// and rebuilds the client and agent. The new agent starts with a fresh
// conversation.
func (s *chatSession) switchProfile(ctx context.Context, key string) {
	if key == "" {
		s.printSwitchUsage()
		return
	}
	old := s.cfg.Model
	fmt.Fprintln(s.out, dim(fmt.Sprintf("Unloading %s...", old)))
	if err := s.llm.Unload(ctx, old); err != nil {
		s.logger.Warn("model unload failed", "model", old, "err", err)
	}
	if err := s.cfg.SwitchProfile(key); err != nil {
		fmt.Fprintln(s.out, red(fmt.Sprintf("[ERROR] %v", err)))
		fmt.Fprintln(s.out)
		return
	}
	s.llm = ollama.New(s.cfg.OllamaURL, ollama.WithAPIKey(s.cfg.APIKey), ollama.WithLogger(s.logger))
	s.buildAgent()
	fmt.Fprintln(s.out, green(fmt.Sprintf("Switched to %s", s.cfg.Model)))
	fmt.Fprintf(s.out, "Temperature: %g, top_p: %g, num_ctx: %d\n",
		s.cfg.Options.Temperature, s.cfg.Options.TopP, s.cfg.Options.NumCtx)
	fmt.Fprintln(s.out)
}

func (s *chatSession) printSwitchUsage() {
	fmt.Fprintln(s.out, "Usage: /switch <profile_name>")
	fmt.Fprintln(s.out, "Use /models to see available profiles.")
	fmt.Fprintln(s.out)
}

func (s *chatSession) toggleDebug() {
	s.debug = !s.debug
	if s.debug {
		s.level.Set(slog.LevelDebug)
	} else {
		s.level.Set(quietLevel)
	}
	fmt.Fprintf(s.out, "Debug mode: %s\n", onOff(s.debug))
	fmt.Fprintln(s.out)
}

// handleChatError reports a failed turn. Lost game links get an
// automatic reconnect attempt; everything else is shown as-is.
func (s *chatSession) handleChatError(ctx context.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindLinkLost, domain.KindUnreachable:
		fmt.Fprintln(s.out, red("[ERROR] Connection lost. Attempting to reconnect..."))
		if rerr := s.game.Reconnect(ctx, 3, 2*time.Second); rerr == nil {
			fmt.Fprintln(s.out, green("[OK] Reconnected! Please try your request again."))
		} else {
			fmt.Fprintln(s.out, red("[ERROR] Could not reconnect. Is Factorio still running?"))
		}
	default:
		fmt.Fprintln(s.out, red(fmt.Sprintf("[ERROR] %v", err)))
	}
	fmt.Fprintln(s.out)
}

func (s *chatSession) printResponse(text string) {
	if s.render != nil {
		if rendered, err := s.render(text); err == nil {
			fmt.Fprintln(s.out, green("Assistant>"))
			fmt.Fprint(s.out, rendered)
			fmt.Fprintln(s.out)
			return
		}
	}
	fmt.Fprintln(s.out, formatResponse(text))
	fmt.Fprintln(s.out)
}

func (s *chatSession) cleanup() {
	fmt.Fprintln(s.out, dim("Unloading model..."))
	if err := s.llm.Unload(context.Background(), s.cfg.Model); err == nil {
		fmt.Fprintln(s.out, dim("Model unloaded from GPU."))
	}
	if err := s.game.Close(); err != nil {
		s.logger.Warn("close game link", "err", err)
	}
	fmt.Fprintln(s.out, "Goodbye!")
}

// formatResponse wraps a plain reply at 70 columns under an
// "Assistant> " prefix, continuation lines indented to match.
func formatResponse(text string) string {
	const width = 70
	indent := strings.Repeat(" ", 11)

	var lines []string
	for i, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		if i == 0 {
			lines = append(lines, green("Assistant> ")+wrap(para, width, "", indent))
		} else {
			lines = append(lines, wrap(para, width, indent, indent))
		}
	}
	return strings.Join(lines, "\n")
}

// wrap greedily folds words so no line exceeds width columns.
func wrap(text string, width int, initial, subsequent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return initial
	}
	var b strings.Builder
	line := initial + words[0]
	base := len(initial)
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width && len(line) > base {
			b.WriteString(line)
			b.WriteByte('\n')
			line = subsequent + word
			base = len(subsequent)
			continue
		}
		line += " " + word
	}
	b.WriteString(line)
	return b.String()
}

func firstSentence(s string) string {
	before, _, _ := strings.Cut(s, ".")
	return before
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
