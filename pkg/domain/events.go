package domain

import (
	"context"
	"time"
)

// EventType names one kind of lifecycle event.
type EventType string

const (
	EventModelTurn  EventType = "model_turn"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase carries the fields shared by every event.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// ModelEvent represents one completed model turn inside an exchange.
type ModelEvent struct {
	EventBase
	Model        string `json:"model"`
	Iteration    int    `json:"iteration"`
	ToolCalls    int    `json:"tool_calls"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

// ToolEvent represents one dispatched tool call. OnToolCall fires before
// dispatch with Result empty; OnToolReturn fires after with Result set.
type ToolEvent struct {
	EventBase
	CallID  string         `json:"call_id,omitempty"`
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args,omitempty"`
	Result  string         `json:"result,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for conversation-loop observability.
// Any nil member is skipped. Hooks run synchronously on the loop goroutine,
// so they must return quickly.
type LifecycleHooks struct {
	OnModelTurn  func(context.Context, *ModelEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// MergeHooks combines hook sets into one that invokes every non-nil member
// in order. Lets metrics, event streaming and caller hooks observe the same
// loop.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnModelTurn != nil {
			prev := merged.OnModelTurn
			merged.OnModelTurn = func(ctx context.Context, ev *ModelEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnModelTurn(ctx, ev)
			}
		}
		if h.OnToolCall != nil {
			prev := merged.OnToolCall
			merged.OnToolCall = func(ctx context.Context, ev *ToolEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnToolCall(ctx, ev)
			}
		}
		if h.OnToolReturn != nil {
			prev := merged.OnToolReturn
			merged.OnToolReturn = func(ctx context.Context, ev *ToolEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnToolReturn(ctx, ev)
			}
		}
	}
	return merged
}
