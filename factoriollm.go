package factoriollm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/agent"
	"github.com/nerdpudding/factorio-llm/pkg/catalog"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/game"
	"github.com/nerdpudding/factorio-llm/pkg/ollama"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
	"github.com/nerdpudding/factorio-llm/pkg/rcon"
)

// Bridge is the high-level entry point for the library. It wires the console
// link, the game facade, the tool catalog, the chat backend and the
// conversation loop into one object.
type Bridge struct {
	console    ports.Console
	game       *game.Client
	dispatcher ports.ToolDispatcher
	chat       ports.ChatClient
	agent      *agent.Agent
	logger     *slog.Logger

	host     string
	port     int
	password string

	ollamaURL string
	apiKey    string
	model     string

	snapshot    func(ctx context.Context) string
	snapshotSet bool

	agentOpts []agent.Option
}

// Option defines a functional option for configuring the Bridge.
type Option func(*Bridge)

// WithAddress sets the console endpoint and credential.
func WithAddress(host string, port int, password string) Option {
	return func(b *Bridge) {
		b.host = host
		b.port = port
		b.password = password
	}
}

// WithConsole injects a custom console, bypassing the default client.
func WithConsole(console ports.Console) Option {
	return func(b *Bridge) { b.console = console }
}

// WithOllama sets the chat backend URL and credential for the default chat
// client. The key may be empty for a local daemon.
func WithOllama(baseURL, apiKey string) Option {
	return func(b *Bridge) {
		b.ollamaURL = baseURL
		b.apiKey = apiKey
	}
}

// WithChatClient injects a custom chat backend, bypassing the default
// client.
func WithChatClient(chat ports.ChatClient) Option {
	return func(b *Bridge) { b.chat = chat }
}

// WithModel sets the model identifier sent on every chat request.
func WithModel(model string) Option {
	return func(b *Bridge) { b.model = model }
}

// WithModelOptions sets the sampling options sent on every chat request.
func WithModelOptions(opts domain.ModelOptions) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithModelOptions(opts))
	}
}

// WithThink toggles reasoning traces. Nil leaves the backend default.
func WithThink(think *bool) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithThink(think))
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithSystemPrompt(prompt))
	}
}

// WithMaxToolIterations bounds model turns within one exchange.
func WithMaxToolIterations(n int) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithMaxToolIterations(n))
	}
}

// WithMaxHistoryMessages bounds retained non-system messages.
func WithMaxHistoryMessages(n int) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithMaxHistoryMessages(n))
	}
}

// WithHooks registers lifecycle hooks on the conversation loop.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bridge) {
		b.agentOpts = append(b.agentOpts, agent.WithHooks(hooks))
	}
}

// WithSnapshot replaces the game state line injected ahead of each user
// message. Nil disables injection.
func WithSnapshot(snapshot func(ctx context.Context) string) Option {
	return func(b *Bridge) {
		b.snapshot = snapshot
		b.snapshotSet = true
	}
}

// WithLogger sets a structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New assembles a Bridge. A console endpoint (or custom console), a chat
// backend (or custom chat client) and a model are required.
func New(opts ...Option) (*Bridge, error) {
	b := &Bridge{}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}

	if b.console == nil {
		if b.host == "" || b.port == 0 {
			return nil, fmt.Errorf("console address is required when no custom console is provided")
		}
		b.console = rcon.New(b.host, b.port, b.password, rcon.WithLogger(b.logger))
	}

	b.game = game.New(b.console, game.WithLogger(b.logger))
	b.dispatcher = catalog.New(b.game, catalog.WithLogger(b.logger))

	if b.chat == nil {
		if b.ollamaURL == "" {
			return nil, fmt.Errorf("ollama url is required when no custom chat client is provided")
		}
		b.chat = ollama.New(b.ollamaURL, ollama.WithAPIKey(b.apiKey), ollama.WithLogger(b.logger))
	}

	if b.model == "" {
		return nil, fmt.Errorf("model is required")
	}

	if !b.snapshotSet {
		b.snapshot = b.game.StateLine
	}

	agentOpts := []agent.Option{
		agent.WithModel(b.model),
		agent.WithSnapshot(b.snapshot),
		agent.WithLogger(b.logger),
	}
	agentOpts = append(agentOpts, b.agentOpts...)
	b.agent = agent.New(b.chat, b.dispatcher, agentOpts...)

	return b, nil
}

// Connect establishes the console link.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.game.Connect(ctx)
}

// Chat runs one full exchange and returns the assistant's final text.
func (b *Bridge) Chat(ctx context.Context, message string) (string, error) {
	return b.agent.Chat(ctx, message)
}

// Reset clears the conversation, keeping only the system prompt.
func (b *Bridge) Reset() {
	b.agent.Reset()
}

// History returns a copy of the conversation so far.
func (b *Bridge) History() []domain.Message {
	return b.agent.History()
}

// Status returns a health snapshot. Tick and position are filled best effort
// while the console link is live.
func (b *Bridge) Status(ctx context.Context) domain.Status {
	status := domain.Status{
		Connected: b.game.Connected(),
		Model:     b.model,
		Tools:     len(b.dispatcher.Definitions()),
	}
	if status.Connected {
		if tick, err := b.game.Tick(ctx); err == nil {
			status.Tick = tick
		}
		if pos, err := b.game.PlayerPosition(ctx); err == nil {
			status.Position = pos
		}
	}
	return status
}

// Game returns the typed game facade.
func (b *Bridge) Game() *game.Client {
	return b.game
}

// Dispatcher returns the tool dispatcher backing the conversation loop.
func (b *Bridge) Dispatcher() ports.ToolDispatcher {
	return b.dispatcher
}

// Close evicts the model from the chat backend, then tears the console link
// down. The unload is best effort.
func (b *Bridge) Close() error {
	if err := b.chat.Unload(context.Background(), b.model); err != nil {
		b.logger.Warn("model unload failed", "model", b.model, "err", err)
	}
	return b.game.Close()
}
