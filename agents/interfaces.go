package agents

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// ToolRegistry is the subset of tools.Registry the agent needs
type ToolRegistry interface {
	Definitions() []*ai.ToolDefinition
	ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// Responder turns one utterance into one reply
type Responder interface {
	ProcessQuery(ctx context.Context, query string) string
}
