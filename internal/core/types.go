package core

// Message represents one conversation turn (OpenAI-compatible chat format).
// Messages are append-only once placed in a ConversationState.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// ErrorTag classifies assistant turns produced from a failed model
	// invocation (e.g. MODEL_TIMEOUT). Empty for normal turns.
	ErrorTag string `json:"error_tag,omitempty"`
}

// ToolCall is a single tool invocation request emitted by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ToolDefinition describes a tool available to the model.
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes the function signature.
type FunctionSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters,omitempty"` // JSON Schema
}

// NewToolCall builds a ToolCall. Mostly a convenience for fakes and fixtures;
// in production tool calls arrive already-decoded from the provider.
func NewToolCall(id, name, argsJSON string) ToolCall {
	var tc ToolCall
	tc.ID = id
	tc.Type = "function"
	tc.Function.Name = name
	tc.Function.Arguments = argsJSON
	return tc
}
