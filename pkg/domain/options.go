package domain

// ModelOptions are the sampling and context knobs forwarded to the chat
// backend on every request.
type ModelOptions struct {
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	TopP        float64 `json:"top_p" yaml:"top_p" mapstructure:"top_p"`
	NumCtx      int     `json:"num_ctx" yaml:"num_ctx" mapstructure:"num_ctx"`
	NumPredict  int     `json:"num_predict" yaml:"num_predict" mapstructure:"num_predict"`
}

// ChatRequest is one model invocation: the transcript so far, the tool
// catalog, and the active profile's options. Think toggles reasoning traces
// for models that support them; nil leaves the backend default.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
	Options  ModelOptions
	Think    *bool
}
