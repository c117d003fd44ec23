package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnthropicChatToolUse(t *testing.T) {
	var req map[string]interface{}
	server := newTestServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [
			{"type": "text", "text": "Searching Box."},
			{"type": "tool_use", "id": "toolu_1", "name": "box_generic_search", "input": {"prompt": "budget"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 42, "output_tokens": 7}
	}`, &req)

	p, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 0})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, DefaultConfig().Model, p.Model())

	resp, err := p.Chat(context.Background(), "You are the Box Search Agent.",
		[]Message{{Role: RoleUser, Content: "find the budget"}},
		[]ToolDefinition{{
			Name:        "box_generic_search",
			Description: "Search Box",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"prompt": map[string]interface{}{"type": "string"}},
				"required":   []interface{}{"prompt"},
			},
		}})
	require.NoError(t, err)

	assert.Equal(t, "Searching Box.", resp.Content)
	assert.Equal(t, StopReasonToolUse, resp.StopReason)
	assert.Equal(t, Usage{InputTokens: 42, OutputTokens: 7}, resp.Usage)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "box_generic_search", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"prompt":"budget"}`, string(resp.ToolCalls[0].Input))

	assert.Equal(t, DefaultConfig().Model, req["model"])
	tools, ok := req["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "box_generic_search", tools[0].(map[string]interface{})["name"])
}

func TestAnthropicChatAPIError(t *testing.T) {
	server := newTestServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`, nil)

	p, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 0})
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic API call failed")
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, requiredFields([]interface{}{"a", 1, "b"}))
	assert.Nil(t, requiredFields(nil))
}
