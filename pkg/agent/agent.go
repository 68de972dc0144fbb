// Package agent runs the tool-calling conversation loop: inject a game
// state snapshot, call the model, execute any tool calls, feed results
// back, repeat until the model answers in prose or the iteration budget
// runs out.
package agent

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
)

const (
	// DefaultMaxToolIterations bounds model turns within one exchange.
	DefaultMaxToolIterations = 5

	// DefaultMaxHistoryMessages bounds retained non-system messages.
	DefaultMaxHistoryMessages = 20

	emptyResponseNotice = "I didn't generate a response. Could you rephrase your question?"
	budgetNotice        = "I've made several tool calls but couldn't complete the task. Please try a simpler request."
)

// Agent holds one conversation against one model.
type Agent struct {
	chat         ports.ChatClient
	dispatcher   ports.ToolDispatcher
	snapshot     func(ctx context.Context) string
	model        string
	options      domain.ModelOptions
	think        *bool
	systemPrompt string
	maxIter      int
	maxHistory   int
	hooks        domain.LifecycleHooks
	sessionID    string
	logger       *slog.Logger

	mu       sync.Mutex
	messages []domain.Message
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel sets the model identifier sent on every chat request.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// WithModelOptions sets the sampling options sent on every chat request.
func WithModelOptions(opts domain.ModelOptions) Option {
	return func(a *Agent) { a.options = opts }
}

// WithThink toggles reasoning traces. Nil leaves the backend default.
func WithThink(think *bool) Option {
	return func(a *Agent) { a.think = think }
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithSnapshot sets the provider for the state line injected ahead of each
// user message. Nil disables injection.
func WithSnapshot(snapshot func(ctx context.Context) string) Option {
	return func(a *Agent) { a.snapshot = snapshot }
}

// WithMaxToolIterations bounds model turns within one exchange.
func WithMaxToolIterations(n int) Option {
	return func(a *Agent) { a.maxIter = n }
}

// WithMaxHistoryMessages bounds retained non-system messages. Zero or
// negative disables trimming.
func WithMaxHistoryMessages(n int) Option {
	return func(a *Agent) { a.maxHistory = n }
}

// WithHooks installs lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) { a.hooks = hooks }
}

// WithSessionID tags emitted events with a session identifier.
func WithSessionID(id string) Option {
	return func(a *Agent) { a.sessionID = id }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// New returns an agent with a fresh history holding only the system prompt.
func New(chat ports.ChatClient, dispatcher ports.ToolDispatcher, opts ...Option) *Agent {
	a := &Agent{
		chat:         chat,
		dispatcher:   dispatcher,
		systemPrompt: DefaultSystemPrompt,
		maxIter:      DefaultMaxToolIterations,
		maxHistory:   DefaultMaxHistoryMessages,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.messages = []domain.Message{{Role: domain.RoleSystem, Content: a.systemPrompt}}
	return a
}

// Model returns the model identifier in use.
func (a *Agent) Model() string { return a.model }

// SetModel changes the model and sampling options for subsequent turns.
// History is kept; the conversation continues on the new model.
func (a *Agent) SetModel(model string, opts domain.ModelOptions, think *bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = model
	a.options = opts
	a.think = think
}

// Reset clears the conversation, keeping only the system prompt.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = []domain.Message{{Role: domain.RoleSystem, Content: a.systemPrompt}}
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Chat runs one full exchange and returns the assistant's final text. A
// chat-backend failure aborts only this exchange; the user message stays in
// history and the agent remains usable.
func (a *Agent) Chat(ctx context.Context, userMessage string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	enriched := userMessage
	if a.snapshot != nil {
		enriched = a.snapshot(ctx) + "\n" + userMessage
	}
	a.messages = append(a.messages, domain.Message{Role: domain.RoleUser, Content: enriched})

	for iteration := 1; iteration <= a.maxIter; iteration++ {
		start := time.Now()
		result, err := a.chat.Chat(ctx, domain.ChatRequest{
			Model:    a.model,
			Messages: a.messages,
			Tools:    a.dispatcher.Definitions(),
			Options:  a.options,
			Think:    a.think,
		})
		if err != nil {
			return "", err
		}

		msg := result.Message
		if msg.Role == "" {
			msg.Role = domain.RoleAssistant
		}

		// Scan every turn for a tool call printed as text; a single turn
		// can carry both forms.
		if call, ok := parseTextToolCall(msg.Content); ok {
			a.logger.Debug("recovered text tool call", "tool", call.Function.Name)
			msg.ToolCalls = append(msg.ToolCalls, call)
			msg.Content = ""
		}
		for i := range msg.ToolCalls {
			if msg.ToolCalls[i].ID == "" {
				msg.ToolCalls[i].ID = uuid.NewString()
			}
		}

		a.emitModelTurn(ctx, iteration, result, len(msg.ToolCalls), time.Since(start))

		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(msg.Content)
			if content == "" {
				a.logger.Warn("model returned empty response")
				content = emptyResponseNotice
			}
			a.messages = append(a.messages, domain.Message{Role: domain.RoleAssistant, Content: content})
			a.trimHistory()
			return content, nil
		}

		msg.Thinking = ""
		a.messages = append(a.messages, msg)

		for _, call := range msg.ToolCalls {
			a.emitToolCall(ctx, call)
			out := a.dispatcher.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			a.emitToolReturn(ctx, call, out)
			a.messages = append(a.messages, domain.Message{Role: domain.RoleTool, Content: out})
		}
	}

	a.logger.Warn("iteration budget exhausted", "max", a.maxIter)
	a.messages = append(a.messages, domain.Message{Role: domain.RoleAssistant, Content: budgetNotice})
	a.trimHistory()
	return budgetNotice, nil
}

// trimHistory drops the oldest non-system messages once the cap is
// exceeded. Runs once per completed exchange; the system prompt at index 0
// is never evicted.
func (a *Agent) trimHistory() {
	if a.maxHistory <= 0 {
		return
	}
	if len(a.messages)-1 <= a.maxHistory {
		return
	}
	kept := make([]domain.Message, 0, 1+a.maxHistory)
	kept = append(kept, a.messages[0])
	kept = append(kept, a.messages[len(a.messages)-a.maxHistory:]...)
	a.messages = kept
}

func (a *Agent) emitModelTurn(ctx context.Context, iteration int, result *domain.ChatResult, toolCalls int, elapsed time.Duration) {
	if a.hooks.OnModelTurn == nil {
		return
	}
	a.hooks.OnModelTurn(ctx, &domain.ModelEvent{
		EventBase:    a.eventBase(domain.EventModelTurn),
		Model:        a.model,
		Iteration:    iteration,
		ToolCalls:    toolCalls,
		PromptTokens: result.PromptTokens,
		OutputTokens: result.OutputTokens,
		ElapsedMS:    elapsed.Milliseconds(),
	})
}

func (a *Agent) emitToolCall(ctx context.Context, call domain.ToolCall) {
	if a.hooks.OnToolCall == nil {
		return
	}
	a.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: a.eventBase(domain.EventToolCall),
		CallID:    call.ID,
		Tool:      call.Function.Name,
		Args:      call.Function.Arguments,
	})
}

func (a *Agent) emitToolReturn(ctx context.Context, call domain.ToolCall, result string) {
	if a.hooks.OnToolReturn == nil {
		return
	}
	a.hooks.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase: a.eventBase(domain.EventToolReturn),
		CallID:    call.ID,
		Tool:      call.Function.Name,
		Args:      call.Function.Arguments,
		Result:    result,
		IsError:   strings.HasPrefix(result, "Error:"),
	})
}

func (a *Agent) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: a.sessionID}
}
