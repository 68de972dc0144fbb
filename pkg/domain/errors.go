package domain

import (
	"errors"
	"fmt"
)

// Kind classifies bridge failures for tool-result strings and operator display.
type Kind string

const (
	KindUnreachable  Kind = "Unreachable"
	KindLinkLost     Kind = "LinkLost"
	KindRemoteScript Kind = "RemoteScriptError"
	KindDecode       Kind = "DecodeError"
	KindArgument     Kind = "ArgumentError"
	KindChatTimeout  Kind = "ChatTimeout"
	KindChatAPI      Kind = "ChatApiError"
	KindInternal     Kind = "InternalError"
)

// ErrUnreachable is returned when the initial connect to the game server fails.
var ErrUnreachable = errors.New("server unreachable")

// ErrLinkLost is returned when an established console connection fails mid-use.
// The transport drops its handle as a side effect; callers must reconnect
// before issuing further commands.
var ErrLinkLost = errors.New("link lost")

// ErrChatTimeout is returned when the chat backend does not answer within the
// configured wall-clock budget.
var ErrChatTimeout = errors.New("chat request timed out")

// ErrChatAPI is returned when the chat backend is unreachable or answers with
// a non-success status.
var ErrChatAPI = errors.New("chat backend error")

// ErrSessionNotFound is returned when a session ID cannot be found in the registry.
var ErrSessionNotFound = errors.New("session not found")

// RemoteScriptError reports that the console delivered the command but the
// remote Lua evaluation itself failed. Output carries the raw reply.
type RemoteScriptError struct {
	Output string
}

func (e *RemoteScriptError) Error() string {
	return fmt.Sprintf("remote script error: %s", e.Output)
}

// DecodeError reports a reply that did not parse as serpent value syntax.
// Raw carries the unparsed reply for diagnosis.
type DecodeError struct {
	Raw    string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode reply: %s (raw: %q)", e.Reason, e.Raw)
}

// ArgumentError reports a tool call with a missing or invalid argument.
// It is reported back as a result string so the model can see it and retry.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Tool == "" {
		return e.Reason
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Reason)
}

// KindOf maps any error to its taxonomy kind. Errors outside the taxonomy
// map to KindInternal.
func KindOf(err error) Kind {
	var (
		remote *RemoteScriptError
		dec    *DecodeError
		arg    *ArgumentError
	)
	switch {
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	case errors.Is(err, ErrLinkLost):
		return KindLinkLost
	case errors.Is(err, ErrChatTimeout):
		return KindChatTimeout
	case errors.Is(err, ErrChatAPI):
		return KindChatAPI
	case errors.As(err, &remote):
		return KindRemoteScript
	case errors.As(err, &dec):
		return KindDecode
	case errors.As(err, &arg):
		return KindArgument
	default:
		return KindInternal
	}
}
