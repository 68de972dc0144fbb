package domain

// Roles a chat message can carry, matching the Ollama wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single turn in a conversation, in the shape the chat backend
// sends and receives. Thinking holds reasoning traces for models that emit
// them; it is never fed back into prompts.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-originated request to invoke one named operation.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function CallFunction `json:"function"`
}

// CallFunction carries the target operation name and its decoded arguments.
type CallFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResult is one completed assistant turn together with usage counters
// reported by the backend. Counters are zero when the backend omits them.
type ChatResult struct {
	Message      Message
	PromptTokens int
	OutputTokens int
}
