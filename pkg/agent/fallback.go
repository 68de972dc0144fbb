package agent

import (
	"encoding/json"
	"regexp"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// Some models print a tool invocation as literal text in the answer body
// instead of emitting a structured call, in the shape name[ARGS]{json}.
var textCallPattern = regexp.MustCompile(`(\w+)\[ARGS\](\{[^}]*\})`)

// parseTextToolCall recovers a tool call printed as text. The name is not
// checked against the catalog here; an unknown name goes through dispatch so
// the model sees the failure and can retry.
func parseTextToolCall(content string) (domain.ToolCall, bool) {
	m := textCallPattern.FindStringSubmatch(content)
	if m == nil {
		return domain.ToolCall{}, false
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
		return domain.ToolCall{}, false
	}
	return domain.ToolCall{Function: domain.CallFunction{Name: m[1], Arguments: args}}, true
}
