package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

type fakeChat struct {
	requests []domain.ChatRequest
	handler  func(call int, req domain.ChatRequest) (*domain.ChatResult, error)
}

func (f *fakeChat) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	f.requests = append(f.requests, req)
	return f.handler(len(f.requests)-1, req)
}

func (f *fakeChat) Available(ctx context.Context) error { return nil }

func (f *fakeChat) ListModels(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeChat) Unload(ctx context.Context, model string) error { return nil }

type fakeDispatcher struct {
	calls   []domain.CallFunction
	handler func(name string, args map[string]any) string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, name string, args map[string]any) string {
	f.calls = append(f.calls, domain.CallFunction{Name: name, Arguments: args})
	if f.handler == nil {
		return "ok"
	}
	return f.handler(name, args)
}

func (f *fakeDispatcher) Definitions() []domain.ToolDefinition { return nil }

func textReply(content string) *domain.ChatResult {
	return &domain.ChatResult{Message: domain.Message{Role: domain.RoleAssistant, Content: content}}
}

func toolReply(name string, args map[string]any) *domain.ChatResult {
	return &domain.ChatResult{Message: domain.Message{
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{
			{Function: domain.CallFunction{Name: name, Arguments: args}},
		},
	}}
}

func snapshot(ctx context.Context) string {
	return "[GAME STATE: x=1.0 y=2.0 tick=100]"
}

func TestChatPlainAnswer(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return textReply("You are at x=1.0, y=2.0."), nil
	}}
	a := New(chat, &fakeDispatcher{}, WithModel("qwen3:8b"), WithSnapshot(snapshot))

	answer, err := a.Chat(context.Background(), "where am I?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "You are at x=1.0, y=2.0." {
		t.Errorf("answer = %q", answer)
	}

	history := a.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Role != domain.RoleSystem || history[0].Content != DefaultSystemPrompt {
		t.Error("system prompt not at index 0")
	}
	want := "[GAME STATE: x=1.0 y=2.0 tick=100]\nwhere am I?"
	if history[1].Content != want {
		t.Errorf("user message = %q, want state line prefix", history[1].Content)
	}
	if history[2].Role != domain.RoleAssistant {
		t.Errorf("final role = %q", history[2].Role)
	}
}

func TestChatToolRoundTrip(t *testing.T) {
	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			return toolReply("get_tick", map[string]any{}), nil
		}
		return textReply("It is tick 54321."), nil
	}}
	dispatcher := &fakeDispatcher{handler: func(string, map[string]any) string { return "54321" }}
	a := New(chat, dispatcher, WithSnapshot(snapshot))

	answer, err := a.Chat(context.Background(), "what tick is it?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "It is tick 54321." {
		t.Errorf("answer = %q", answer)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0].Name != "get_tick" {
		t.Fatalf("dispatched = %+v", dispatcher.calls)
	}

	// system, user, assistant with calls, tool result, final assistant
	history := a.History()
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	if len(history[2].ToolCalls) != 1 {
		t.Errorf("assistant turn lost its tool calls")
	}
	if history[2].ToolCalls[0].ID == "" {
		t.Error("tool call left without an ID")
	}
	if history[3].Role != domain.RoleTool || history[3].Content != "54321" {
		t.Errorf("tool message = %+v", history[3])
	}

	// Second request must carry the tool result.
	second := chat.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != domain.RoleTool || last.Content != "54321" {
		t.Errorf("second request last message = %+v", last)
	}
}

func TestChatToolCallOrderPreserved(t *testing.T) {
	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			return &domain.ChatResult{Message: domain.Message{
				Role: domain.RoleAssistant,
				ToolCalls: []domain.ToolCall{
					{Function: domain.CallFunction{Name: "place_entity", Arguments: map[string]any{"name": "iron-chest", "x": 1.0, "y": 2.0}}},
					{Function: domain.CallFunction{Name: "get_entity_inventory", Arguments: map[string]any{"x": 1.0, "y": 2.0}}},
				},
			}}, nil
		}
		return textReply("Placed and checked."), nil
	}}
	dispatcher := &fakeDispatcher{}
	a := New(chat, dispatcher)

	if _, err := a.Chat(context.Background(), "place a chest and look inside"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(dispatcher.calls) != 2 {
		t.Fatalf("dispatched %d calls, want 2", len(dispatcher.calls))
	}
	if dispatcher.calls[0].Name != "place_entity" || dispatcher.calls[1].Name != "get_entity_inventory" {
		t.Errorf("order = %s, %s", dispatcher.calls[0].Name, dispatcher.calls[1].Name)
	}
}

func TestChatTerminatesAtBudget(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return toolReply("get_tick", map[string]any{}), nil
	}}
	a := New(chat, &fakeDispatcher{}, WithMaxToolIterations(3))

	answer, err := a.Chat(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != budgetNotice {
		t.Errorf("answer = %q, want budget notice", answer)
	}
	if len(chat.requests) != 3 {
		t.Errorf("model turns = %d, want exactly 3", len(chat.requests))
	}

	history := a.History()
	if history[len(history)-1].Content != budgetNotice {
		t.Error("budget notice not recorded as final assistant turn")
	}
}

func TestChatFallbackParsesTextCall(t *testing.T) {
	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			return textReply(`mine_resource[ARGS]{"count": 5}`), nil
		}
		return textReply("Mined 5 coal."), nil
	}}
	dispatcher := &fakeDispatcher{}
	a := New(chat, dispatcher)

	if _, err := a.Chat(context.Background(), "mine some coal"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatched %d calls, want 1", len(dispatcher.calls))
	}
	call := dispatcher.calls[0]
	if call.Name != "mine_resource" || call.Arguments["count"] != float64(5) {
		t.Errorf("call = %+v", call)
	}

	// The recovered call must not also surface as prose.
	history := a.History()
	if history[2].Content != "" {
		t.Errorf("assistant content = %q, want cleared", history[2].Content)
	}
	if len(history[2].ToolCalls) != 1 || history[2].ToolCalls[0].ID == "" {
		t.Errorf("assistant tool calls = %+v", history[2].ToolCalls)
	}
}

func TestChatFallbackMergesWithStructuredCalls(t *testing.T) {
	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			return &domain.ChatResult{Message: domain.Message{
				Role:    domain.RoleAssistant,
				Content: `get_tick[ARGS]{}`,
				ToolCalls: []domain.ToolCall{
					{Function: domain.CallFunction{Name: "get_player_position", Arguments: map[string]any{}}},
				},
			}}, nil
		}
		return textReply("Done."), nil
	}}
	dispatcher := &fakeDispatcher{}
	a := New(chat, dispatcher)

	if _, err := a.Chat(context.Background(), "both forms"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(dispatcher.calls) != 2 {
		t.Fatalf("dispatched %d calls, want 2", len(dispatcher.calls))
	}
	if dispatcher.calls[0].Name != "get_player_position" || dispatcher.calls[1].Name != "get_tick" {
		t.Errorf("order = %s, %s", dispatcher.calls[0].Name, dispatcher.calls[1].Name)
	}
}

func TestChatMalformedTextCallStaysProse(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return textReply(`mine_resource[ARGS]{"count": }`), nil
	}}
	dispatcher := &fakeDispatcher{}
	a := New(chat, dispatcher)

	answer, err := a.Chat(context.Background(), "mine")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != `mine_resource[ARGS]{"count": }` {
		t.Errorf("answer = %q", answer)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("malformed text call was dispatched: %+v", dispatcher.calls)
	}
}

func TestChatEmptyContentApology(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return textReply("   \n"), nil
	}}
	a := New(chat, &fakeDispatcher{})

	answer, err := a.Chat(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != emptyResponseNotice {
		t.Errorf("answer = %q, want apology", answer)
	}
}

func TestChatHistoryBound(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return textReply("short answer"), nil
	}}
	a := New(chat, &fakeDispatcher{}, WithMaxHistoryMessages(4))

	for i := 0; i < 10; i++ {
		if _, err := a.Chat(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Chat %d: %v", i, err)
		}

		history := a.History()
		if len(history) > 1+4 {
			t.Fatalf("history length = %d after exchange %d, cap is 5", len(history), i)
		}
		if history[0].Role != domain.RoleSystem {
			t.Fatal("system prompt evicted")
		}
	}

	history := a.History()
	if history[len(history)-1].Content != "short answer" {
		t.Error("most recent answer lost in trim")
	}
}

func TestChatBackendErrorFatalToTurnOnly(t *testing.T) {
	fail := true
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		if fail {
			return nil, fmt.Errorf("%w: status 502", domain.ErrChatAPI)
		}
		return textReply("recovered"), nil
	}}
	a := New(chat, &fakeDispatcher{})

	_, err := a.Chat(context.Background(), "first")
	if !errors.Is(err, domain.ErrChatAPI) {
		t.Fatalf("err = %v, want ErrChatAPI", err)
	}

	fail = false
	answer, err := a.Chat(context.Background(), "second")
	if err != nil {
		t.Fatalf("Chat after failure: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}

	// The failed turn's user message stays; the next request sees both.
	var users int
	for _, m := range chat.requests[len(chat.requests)-1].Messages {
		if m.Role == domain.RoleUser {
			users++
		}
	}
	if users != 2 {
		t.Errorf("user messages in final request = %d, want 2", users)
	}
}

func TestChatEmitsLifecycleEvents(t *testing.T) {
	var modelTurns []*domain.ModelEvent
	var toolCalls, toolReturns []*domain.ToolEvent

	hooks := domain.LifecycleHooks{
		OnModelTurn:  func(_ context.Context, e *domain.ModelEvent) { modelTurns = append(modelTurns, e) },
		OnToolCall:   func(_ context.Context, e *domain.ToolEvent) { toolCalls = append(toolCalls, e) },
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) { toolReturns = append(toolReturns, e) },
	}

	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			reply := toolReply("count_entities", map[string]any{"entity_type": "tree"})
			reply.PromptTokens = 120
			reply.OutputTokens = 15
			return reply, nil
		}
		return textReply("There are 42 trees."), nil
	}}
	dispatcher := &fakeDispatcher{handler: func(string, map[string]any) string { return "42" }}
	a := New(chat, dispatcher, WithModel("qwen3:8b"), WithHooks(hooks), WithSessionID("s-1"))

	if _, err := a.Chat(context.Background(), "count trees"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(modelTurns) != 2 {
		t.Fatalf("model turn events = %d, want 2", len(modelTurns))
	}
	first := modelTurns[0]
	if first.Model != "qwen3:8b" || first.Iteration != 1 || first.ToolCalls != 1 {
		t.Errorf("first model event = %+v", first)
	}
	if first.PromptTokens != 120 || first.OutputTokens != 15 {
		t.Errorf("token counts = %d/%d", first.PromptTokens, first.OutputTokens)
	}
	if first.SessionID != "s-1" {
		t.Errorf("session id = %q", first.SessionID)
	}

	if len(toolCalls) != 1 || len(toolReturns) != 1 {
		t.Fatalf("tool events = %d/%d, want 1/1", len(toolCalls), len(toolReturns))
	}
	if toolCalls[0].Tool != "count_entities" || toolCalls[0].Result != "" {
		t.Errorf("call event = %+v", toolCalls[0])
	}
	ret := toolReturns[0]
	if ret.Result != "42" || ret.IsError {
		t.Errorf("return event = %+v", ret)
	}
	if ret.CallID == "" || ret.CallID != toolCalls[0].CallID {
		t.Errorf("call ids do not correlate: %q vs %q", toolCalls[0].CallID, ret.CallID)
	}
}

func TestChatToolErrorMarkedInEvent(t *testing.T) {
	var returns []*domain.ToolEvent
	hooks := domain.LifecycleHooks{
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) { returns = append(returns, e) },
	}

	chat := &fakeChat{handler: func(call int, req domain.ChatRequest) (*domain.ChatResult, error) {
		if call == 0 {
			return toolReply("get_tick", map[string]any{}), nil
		}
		return textReply("The game is unreachable."), nil
	}}
	dispatcher := &fakeDispatcher{handler: func(string, map[string]any) string {
		return "Error: LinkLost: link lost"
	}}
	a := New(chat, dispatcher, WithHooks(hooks))

	if _, err := a.Chat(context.Background(), "tick?"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(returns) != 1 || !returns[0].IsError {
		t.Fatalf("returns = %+v, want one error-flagged event", returns)
	}
}

func TestReset(t *testing.T) {
	chat := &fakeChat{handler: func(int, domain.ChatRequest) (*domain.ChatResult, error) {
		return textReply("hi"), nil
	}}
	a := New(chat, &fakeDispatcher{})

	if _, err := a.Chat(context.Background(), "hello"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	a.Reset()

	history := a.History()
	if len(history) != 1 || history[0].Role != domain.RoleSystem {
		t.Errorf("history after reset = %+v", history)
	}
}

func TestParseTextToolCall(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tool    string
		ok      bool
	}{
		{"Call With Args", `mine_resource[ARGS]{"count": 5}`, "mine_resource", true},
		{"Call With Empty Args", `get_tick[ARGS]{}`, "get_tick", true},
		{"Embedded In Prose", `Let me check. get_tick[ARGS]{} One moment.`, "get_tick", true},
		{"Plain Prose", "The factory is fine.", "", false},
		{"Broken JSON", `craft_item[ARGS]{"item_name": }`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := parseTextToolCall(tt.content)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && call.Function.Name != tt.tool {
				t.Errorf("tool = %q, want %q", call.Function.Name, tt.tool)
			}
		})
	}
}
