package domain

import (
	"context"
	"testing"
)

func TestMergeHooksInvokesAllInOrder(t *testing.T) {
	var order []string
	a := LifecycleHooks{
		OnModelTurn: func(context.Context, *ModelEvent) { order = append(order, "a.model") },
		OnToolCall:  func(context.Context, *ToolEvent) { order = append(order, "a.call") },
	}
	b := LifecycleHooks{
		OnModelTurn:  func(context.Context, *ModelEvent) { order = append(order, "b.model") },
		OnToolReturn: func(context.Context, *ToolEvent) { order = append(order, "b.return") },
	}

	merged := MergeHooks(a, b)
	ctx := context.Background()
	merged.OnModelTurn(ctx, &ModelEvent{})
	merged.OnToolCall(ctx, &ToolEvent{})
	merged.OnToolReturn(ctx, &ToolEvent{})

	want := []string{"a.model", "b.model", "a.call", "b.return"}
	if len(order) != len(want) {
		t.Fatalf("invocations = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("invocation %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestMergeHooksKeepsAbsentMembersNil(t *testing.T) {
	merged := MergeHooks(LifecycleHooks{}, LifecycleHooks{
		OnModelTurn: func(context.Context, *ModelEvent) {},
	})
	if merged.OnModelTurn == nil {
		t.Error("OnModelTurn should be set")
	}
	if merged.OnToolCall != nil || merged.OnToolReturn != nil {
		t.Error("members absent from every input must stay nil")
	}
}
