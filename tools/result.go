package tools

import "time"

// ToolCallResult stores the result of a tool call
type ToolCallResult struct {
	ID        string                 `json:"id"`
	ToolName  string                 `json:"tool_name"`
	Input     map[string]interface{} `json:"input"`
	Output    interface{}            `json:"output"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Failed reports whether the backend answered with an {"error": ...} object
func (r ToolCallResult) Failed() bool {
	if r.Error != "" {
		return true
	}
	m, ok := r.Output.(map[string]interface{})
	if !ok {
		return false
	}
	_, has := m["error"]
	return has
}
