package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrToolNotFound is returned by ExecuteTool for names that were never registered
var ErrToolNotFound = errors.New("tool not found")

// ToolPlugin defines the interface for plugins that provide tools
type ToolPlugin interface {
	RegisterTools(gk *genkit.Genkit, registry *Registry)
}

// ToolExecutor is the function signature for executing a tool
type ToolExecutor func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry manages the registration of AI tools
type Registry struct {
	mu        sync.RWMutex
	tools     []ai.Tool
	executors map[string]ToolExecutor
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:     make([]ai.Tool, 0),
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool to the registry with its executor.
// Registering a name twice replaces the earlier executor and definition.
func (r *Registry) Register(tool ai.Tool, executor ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Definition().Name
	if _, exists := r.executors[name]; exists {
		for i, t := range r.tools {
			if t.Definition().Name == name {
				r.tools[i] = tool
			}
		}
	} else {
		r.tools = append(r.tools, tool)
	}
	r.executors[name] = executor
}

// GetTools returns all registered tools in registration order
func (r *Registry) GetTools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ai.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Definitions returns the catalog advertised to the model
func (r *Registry) Definitions() []*ai.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*ai.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Names returns the registered tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Definition().Name)
	}
	return names
}

// ExecuteTool runs a registered tool by name
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	executor, ok := r.executors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return executor(ctx, args)
}
