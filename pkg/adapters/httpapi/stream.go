package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// EventStream fans conversation lifecycle events out to SSE subscribers.
// Slow clients lose messages rather than stalling the loop.
type EventStream struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[chan string]string // channel -> session filter, "" matches all
}

// NewEventStream creates an empty stream.
func NewEventStream(logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EventStream{
		logger: logger,
		subs:   make(map[chan string]string),
	}
}

// Subscribe registers a listener. sessionID narrows delivery to one
// session; empty receives everything. The returned cancel must be called
// to release the subscription.
func (es *EventStream) Subscribe(sessionID string) (<-chan string, func()) {
	ch := make(chan string, 16)

	es.mu.Lock()
	es.subs[ch] = sessionID
	es.mu.Unlock()

	return ch, func() {
		es.mu.Lock()
		defer es.mu.Unlock()
		if _, ok := es.subs[ch]; ok {
			delete(es.subs, ch)
			close(ch)
		}
	}
}

// Publish delivers payload to every subscriber whose filter matches
// sessionID. Full buffers drop the message.
func (es *EventStream) Publish(sessionID, payload string) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for ch, filter := range es.subs {
		if filter != "" && filter != sessionID {
			continue
		}
		select {
		case ch <- payload:
		default:
			es.logger.Warn("event subscriber buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Hooks returns lifecycle hooks that publish each event as one JSON line.
func (es *EventStream) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnModelTurn: func(_ context.Context, ev *domain.ModelEvent) {
			es.publishJSON(ev.SessionID, ev)
		},
		OnToolCall: func(_ context.Context, ev *domain.ToolEvent) {
			es.publishJSON(ev.SessionID, ev)
		},
		OnToolReturn: func(_ context.Context, ev *domain.ToolEvent) {
			es.publishJSON(ev.SessionID, ev)
		},
	}
}

func (es *EventStream) publishJSON(sessionID string, ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		es.logger.Warn("event marshal failed", "err", err)
		return
	}
	es.Publish(sessionID, string(payload))
}
