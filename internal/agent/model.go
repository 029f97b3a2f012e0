package agent

import "context"

// ModelResponse is the normalized result of one model invocation: textual
// content plus zero or more tool calls.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is the single non-deterministic dependency in the system: messages
// in, one message with optional tool calls out.
type Model interface {
	Invoke(ctx context.Context, messages []Message, tools []Schema) (ModelResponse, error)
}
