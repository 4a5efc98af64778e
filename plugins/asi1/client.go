// Package asi1 talks to the ASI:One chat-completions API, which follows the
// OpenAI wire format.
package asi1

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/log"
	"github.com/va6996/tokenagent/plugins"
)

const (
	DefaultBaseURL = "https://api.asi1.ai/v1"
	DefaultModel   = "asi1-mini"
)

// Client handles ASI:One chat-completion requests
type Client struct {
	Model  string
	client openai.Client
}

// Ensure Client satisfies LLMClient
var _ plugins.LLMClient = (*Client)(nil)

// NewClient creates a new ASI:One client. Retries are disabled.
func NewClient(cfg config.LLMConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if cfg.APIKey == "" {
		log.Warn(context.Background(), "ASI1 API key is empty, chat completions will be rejected")
	}

	return &Client{
		Model: model,
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
			option.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		),
	}
}

// Chat sends messages, plus the tool catalog when non-empty, and returns the
// first choice's message.
func (c *Client) Chat(ctx context.Context, messages []plugins.Message, tools []*ai.ToolDefinition) (*plugins.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.Model),
		Messages: toParams(messages),
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	log.Debugf(ctx, "[ASI1] Sending chat completion: model=%s, messages=%d, tools=%d", c.Model, len(messages), len(tools))

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	msg := completion.Choices[0].Message
	out := &plugins.Message{
		Role:    plugins.RoleAssistant,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, plugins.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	log.Debugf(ctx, "[ASI1] Completion received: content=%d chars, tool_calls=%d", len(out.Content), len(out.ToolCalls))
	return out, nil
}

func toParams(messages []plugins.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case plugins.RoleAssistant:
			p := openai.AssistantMessage(m.Content)
			for _, tc := range m.ToolCalls {
				p.OfAssistant.ToolCalls = append(p.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			params = append(params, p)
		case plugins.RoleTool:
			params = append(params, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

func toToolParams(defs []*ai.ToolDefinition) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		fn := openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
		}
		if def.InputSchema != nil {
			fn.Parameters = openai.FunctionParameters(def.InputSchema)
		}
		params = append(params, openai.ChatCompletionToolParam{Function: fn})
	}
	return params
}
