package plugins

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// Chat roles understood by LLMClient implementations
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one turn of a chat-completions conversation
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// LLMClient defines the interface for LLM interaction.
// Chat sends the conversation and, when tools is non-empty, the tool catalog.
// It returns the assistant turn.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, tools []*ai.ToolDefinition) (*Message, error)
}

// LedgerClient invokes one of the ledger operations by tool name
type LedgerClient interface {
	Call(ctx context.Context, operation string, args map[string]interface{}) (interface{}, error)
}
