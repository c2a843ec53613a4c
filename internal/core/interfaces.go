package core

import (
	"context"
)

// LLMClient abstracts the hosted chat-completions API (OpenRouter, local LLM, etc).
type LLMClient interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
	ChatCompletionWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error)
}

// ToolExecutor abstracts tool execution. Execute returns the tool's string
// result; an error means the tool could not run (unknown name, bad arguments,
// timeout) and the caller surfaces it as diagnostic result content rather
// than aborting the conversation.
type ToolExecutor interface {
	Execute(ctx context.Context, name, argsJSON string) (string, error)
}

// Checkpointer persists conversation state keyed by thread id. Load returns
// ok=false when the thread has no saved state yet. Save must be last-writer-
// wins per thread; callers guarantee a single writer per thread id.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (ConversationState, bool, error)
	Save(ctx context.Context, threadID string, state ConversationState) error
}
