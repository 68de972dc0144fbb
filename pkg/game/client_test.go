package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// fakeConsole scripts replies per command for facade tests.
type fakeConsole struct {
	connected   bool
	connectErrs []error
	executed    []string
	handler     func(cmd string) (string, error)
}

func (f *fakeConsole) Connect(ctx context.Context) error {
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

func (f *fakeConsole) Execute(ctx context.Context, cmd string) (string, error) {
	f.executed = append(f.executed, cmd)
	if f.handler == nil {
		return "", nil
	}
	return f.handler(cmd)
}

func (f *fakeConsole) Connected() bool { return f.connected }

func (f *fakeConsole) Close() error {
	f.connected = false
	return nil
}

func TestStateLine(t *testing.T) {
	console := &fakeConsole{handler: func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "position"):
			return "{x = 5.8, y = -12.34}", nil
		case strings.Contains(cmd, "game.tick"):
			return "54321", nil
		}
		return "", nil
	}}
	c := New(console)

	got := c.StateLine(context.Background())
	want := "[GAME STATE: x=5.8 y=-12.3 tick=54321]"
	if got != want {
		t.Errorf("StateLine = %q, want %q", got, want)
	}
}

func TestStateLineUnavailable(t *testing.T) {
	console := &fakeConsole{handler: func(string) (string, error) {
		return "", domain.ErrLinkLost
	}}
	c := New(console)

	if got := c.StateLine(context.Background()); got != "[GAME STATE: unavailable]" {
		t.Errorf("StateLine = %q, want unavailable form", got)
	}
}

func TestReconnectAfterTwoFailures(t *testing.T) {
	console := &fakeConsole{connectErrs: []error{
		domain.ErrUnreachable,
		domain.ErrUnreachable,
		nil,
	}}
	c := New(console)

	err := c.Reconnect(context.Background(), 3, time.Millisecond)
	if err != nil {
		t.Fatalf("Reconnect should succeed on the third attempt: %v", err)
	}
	if !c.Connected() {
		t.Error("Connected() = false after successful Reconnect")
	}
}

func TestReconnectGivesUp(t *testing.T) {
	console := &fakeConsole{connectErrs: []error{
		domain.ErrUnreachable,
		domain.ErrUnreachable,
		domain.ErrUnreachable,
	}}
	c := New(console)

	err := c.Reconnect(context.Background(), 3, time.Millisecond)
	if !errors.Is(err, domain.ErrUnreachable) {
		t.Errorf("Reconnect error = %v, want ErrUnreachable", err)
	}
}

func TestOneline(t *testing.T) {
	chunk := "\n(function()\n    local x = 1\n    return x\nend)()"
	got := oneline(chunk)
	want := "(function() local x = 1 return x end)()"
	if got != want {
		t.Errorf("oneline = %q, want %q", got, want)
	}
}
