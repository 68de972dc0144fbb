package ports

import (
	"context"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// ChatClient talks to a model backend.
type ChatClient interface {
	// Chat sends one request and returns the assistant turn. Timeouts map
	// to domain.ErrChatTimeout, transport and status failures to
	// domain.ErrChatAPI.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error)

	// Available probes the backend with a short deadline.
	Available(ctx context.Context) error

	// ListModels returns the model names the backend can serve.
	ListModels(ctx context.Context) ([]string, error)

	// Unload asks the backend to evict the named model from memory.
	// Best effort; used when switching models and on shutdown.
	Unload(ctx context.Context, model string) error
}
