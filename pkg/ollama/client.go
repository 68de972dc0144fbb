// Package ollama is the HTTP client for the Ollama chat API. It speaks the
// same wire format to a local daemon and to the hosted backend; the only
// difference is the base URL and a bearer credential.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

const (
	defaultChatTimeout = 120 * time.Second
	probeTimeout       = 5 * time.Second
	listTimeout        = 10 * time.Second
	unloadTimeout      = 30 * time.Second

	// maxErrorBody bounds how much of an error reply is carried into the
	// returned error.
	maxErrorBody = 512
)

// Client calls one Ollama backend.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	httpc   *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer credential sent on every request. Required for
// the hosted backend, unused for a local daemon.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the wall-clock budget for a single chat call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultChatTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

type chatPayload struct {
	Model    string                  `json:"model"`
	Messages []domain.Message        `json:"messages"`
	Stream   bool                    `json:"stream"`
	Options  domain.ModelOptions     `json:"options"`
	Tools    []domain.ToolDefinition `json:"tools,omitempty"`
	Think    *bool                   `json:"think,omitempty"`
}

type chatReply struct {
	Message         domain.Message `json:"message"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	EvalCount       int            `json:"eval_count"`
}

// Chat sends one non-streaming chat request and returns the assistant turn.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	payload := chatPayload{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Options:  req.Options,
		Tools:    req.Tools,
		Think:    req.Think,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", domain.ErrChatTimeout, c.timeout)
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrChatAPI, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrChatAPI, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrChatAPI, err)
	}

	c.logger.Debug("chat turn",
		"model", req.Model,
		"prompt_tokens", reply.PromptEvalCount,
		"output_tokens", reply.EvalCount,
		"tool_calls", len(reply.Message.ToolCalls),
		"elapsed", time.Since(start))

	return &domain.ChatResult{
		Message:      reply.Message,
		PromptTokens: reply.PromptEvalCount,
		OutputTokens: reply.EvalCount,
	}, nil
}

// Available probes the backend's tag listing with a short deadline.
func (c *Client) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChatAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrChatAPI, resp.StatusCode)
	}
	return nil
}

type tagsReply struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names the backend can serve.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChatAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrChatAPI, resp.StatusCode)
	}

	var reply tagsReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrChatAPI, err)
	}

	names := make([]string, 0, len(reply.Models))
	for _, m := range reply.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Unload asks the backend to evict the model from memory by requesting a
// zero keep-alive generation. Best effort; callers log and move on.
func (c *Client) Unload(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]any{
		"model":      model,
		"prompt":     "",
		"keep_alive": 0,
	})
	if err != nil {
		return fmt.Errorf("encode unload request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, unloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build unload request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChatAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrChatAPI, resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
