package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/va6996/tokenagent/log"
	"github.com/va6996/tokenagent/plugins"
	"github.com/va6996/tokenagent/tools"
)

// FallbackReply is returned when the model answers with neither text nor tool calls
const FallbackReply = "I'm not sure how to help with that. Please try rephrasing your request."

// Answer is the outcome of one query
type Answer struct {
	Query     string                 `json:"query"`
	Reply     string                 `json:"reply"`
	ToolCalls []tools.ToolCallResult `json:"tool_calls,omitempty"`
}

// TokenAgent runs the two-step tool-calling loop: the model picks zero or
// more ledger operations, they run in order, and a second completion
// summarises the results.
type TokenAgent struct {
	llm      plugins.LLMClient
	registry ToolRegistry
}

var _ Responder = (*TokenAgent)(nil)

// NewTokenAgent creates a new TokenAgent
func NewTokenAgent(llm plugins.LLMClient, registry ToolRegistry) *TokenAgent {
	return &TokenAgent{
		llm:      llm,
		registry: registry,
	}
}

// ProcessQuery returns the reply text. Any failure is reported inside the
// text as "An error occurred: ..."; it never returns an empty string.
func (a *TokenAgent) ProcessQuery(ctx context.Context, query string) string {
	answer, err := a.Run(ctx, query)
	if err != nil {
		log.Errorf(ctx, "Error processing query: %v", err)
		return fmt.Sprintf("An error occurred: %v", err)
	}
	return answer.Reply
}

// Run executes the loop and also returns the individual tool results
func (a *TokenAgent) Run(ctx context.Context, query string) (*Answer, error) {
	answer := &Answer{Query: query}

	history := []plugins.Message{{Role: plugins.RoleUser, Content: query}}

	log.Infof(ctx, "STEP 1: Asking model to select operations")
	first, err := a.llm.Chat(ctx, history, a.registry.Definitions())
	if err != nil {
		return nil, err
	}

	if len(first.ToolCalls) == 0 {
		answer.Reply = first.Content
		if answer.Reply == "" {
			answer.Reply = FallbackReply
		}
		log.Infof(ctx, "Model answered without tool calls")
		return answer, nil
	}

	history = append(history, plugins.Message{
		Role:      plugins.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})

	log.Infof(ctx, "STEP 2: Executing %d tool call(s)", len(first.ToolCalls))
	for _, call := range first.ToolCalls {
		result, err := a.execute(ctx, call)
		if err != nil {
			return nil, err
		}
		answer.ToolCalls = append(answer.ToolCalls, result)

		content, err := json.Marshal(result.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result of %s: %w", call.Name, err)
		}
		history = append(history, plugins.Message{
			Role:       plugins.RoleTool,
			ToolCallID: call.ID,
			Content:    string(content),
		})
	}

	log.Infof(ctx, "STEP 3: Asking model to summarise results")
	final, err := a.llm.Chat(ctx, history, nil)
	if err != nil {
		return nil, err
	}
	answer.Reply = final.Content
	return answer, nil
}

func (a *TokenAgent) execute(ctx context.Context, call plugins.ToolCall) (tools.ToolCallResult, error) {
	result := tools.ToolCallResult{
		ID:        call.ID,
		ToolName:  call.Name,
		Timestamp: time.Now(),
	}

	args := map[string]interface{}{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return result, fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
		}
	}
	result.Input = args

	log.Infof(ctx, "Model wants to execute %s with arguments: %v", call.Name, args)

	output, err := a.registry.ExecuteTool(ctx, call.Name, args)
	if err != nil {
		return result, err
	}
	result.Output = output
	if result.Failed() {
		log.Warnf(ctx, "Tool %s returned an error result: %v", call.Name, output)
	}
	return result, nil
}
