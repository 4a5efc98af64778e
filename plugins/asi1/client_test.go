package asi1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/plugins"
)

type recordedCall struct {
	Path          string
	Authorization string
	Body          map[string]interface{}
}

func newCompletionServer(t *testing.T, status int, responses ...string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, recordedCall{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		idx := len(calls) - 1
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		fmt.Fprint(w, responses[idx])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func completionJSON(content string, toolCalls string) string {
	if toolCalls == "" {
		toolCalls = "null"
	}
	c, _ := json.Marshal(content)
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "asi1-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": %s, "tool_calls": %s}
		}]
	}`, c, toolCalls)
}

func testClient(baseURL string) *Client {
	return NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: baseURL, Model: "asi1-mini", Timeout: 5})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(config.LLMConfig{APIKey: "sk-test"})
	assert.Equal(t, DefaultModel, client.Model)
}

func TestChat_PlainText(t *testing.T) {
	srv, calls := newCompletionServer(t, http.StatusOK, completionJSON("Hello there", ""))
	client := testClient(srv.URL + "/v1")

	msg, err := client.Chat(context.Background(), []plugins.Message{{Role: plugins.RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", msg.Content)
	assert.Empty(t, msg.ToolCalls)
	assert.Equal(t, plugins.RoleAssistant, msg.Role)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.True(t, strings.HasSuffix(call.Path, "/chat/completions"), call.Path)
	assert.Equal(t, "Bearer sk-test", call.Authorization)
	assert.Equal(t, "asi1-mini", call.Body["model"])
	assert.NotContains(t, call.Body, "tools")

	messages, _ := call.Body["messages"].([]interface{})
	require.Len(t, messages, 1)
	first, _ := messages[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hi", first["content"])
}

func TestChat_ToolCallsAndCatalog(t *testing.T) {
	toolCalls := `[{"id":"call_1","type":"function","function":{"name":"get_token_metadata","arguments":"{\"token_id\":\"abc\"}"}}]`
	srv, calls := newCompletionServer(t, http.StatusOK, completionJSON("", toolCalls))
	client := testClient(srv.URL)

	defs := []*ai.ToolDefinition{{
		Name:        "get_token_metadata",
		Description: "Fetches metadata",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"token_id": map[string]any{"type": "string"}},
			"required":   []string{"token_id"},
		},
	}}

	msg, err := client.Chat(context.Background(), []plugins.Message{{Role: plugins.RoleUser, Content: "metadata for abc"}}, defs)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, plugins.ToolCall{ID: "call_1", Name: "get_token_metadata", Arguments: `{"token_id":"abc"}`}, msg.ToolCalls[0])

	sent, _ := (*calls)[0].Body["tools"].([]interface{})
	require.Len(t, sent, 1)
	tool, _ := sent[0].(map[string]interface{})
	assert.Equal(t, "function", tool["type"])
	fn, _ := tool["function"].(map[string]interface{})
	assert.Equal(t, "get_token_metadata", fn["name"])
	assert.Equal(t, "Fetches metadata", fn["description"])
	params, _ := fn["parameters"].(map[string]interface{})
	assert.Equal(t, "object", params["type"])
}

func TestChat_SendsToolHistory(t *testing.T) {
	srv, calls := newCompletionServer(t, http.StatusOK, completionJSON("Token created", ""))
	client := testClient(srv.URL)

	history := []plugins.Message{
		{Role: plugins.RoleUser, Content: "create it"},
		{Role: plugins.RoleAssistant, ToolCalls: []plugins.ToolCall{{ID: "call_9", Name: "create_icrc2_token", Arguments: `{"name":"T"}`}}},
		{Role: plugins.RoleTool, ToolCallID: "call_9", Content: `{"Ok":"x"}`},
	}
	msg, err := client.Chat(context.Background(), history, nil)
	require.NoError(t, err)
	assert.Equal(t, "Token created", msg.Content)

	messages, _ := (*calls)[0].Body["messages"].([]interface{})
	require.Len(t, messages, 3)

	assistant, _ := messages[1].(map[string]interface{})
	assert.Equal(t, "assistant", assistant["role"])
	sentCalls, _ := assistant["tool_calls"].([]interface{})
	require.Len(t, sentCalls, 1)
	sentCall, _ := sentCalls[0].(map[string]interface{})
	assert.Equal(t, "call_9", sentCall["id"])
	assert.Equal(t, "function", sentCall["type"])

	tool, _ := messages[2].(map[string]interface{})
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_9", tool["tool_call_id"])
	assert.Equal(t, `{"Ok":"x"}`, tool["content"])
	assert.NotContains(t, (*calls)[0].Body, "tools")
}

func TestChat_HTTPError(t *testing.T) {
	srv, calls := newCompletionServer(t, http.StatusInternalServerError, `{"error":{"message":"upstream down","type":"server_error"}}`)
	client := testClient(srv.URL)

	_, err := client.Chat(context.Background(), []plugins.Message{{Role: plugins.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
	assert.Len(t, *calls, 1, "requests are not retried")
}

func TestChat_NoChoices(t *testing.T) {
	srv, _ := newCompletionServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"asi1-mini","choices":[]}`)
	client := testClient(srv.URL)

	_, err := client.Chat(context.Background(), []plugins.Message{{Role: plugins.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
