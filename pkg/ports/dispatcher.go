package ports

import (
	"context"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// ToolDispatcher executes one named tool call and formats the outcome as
// text for the model. Dispatch never fails from the caller's point of view:
// every error is folded into the returned string as
// "Error: <kind>: <message>".
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) string

	// Definitions returns the full catalog in the shape sent to the model.
	Definitions() []domain.ToolDefinition
}
