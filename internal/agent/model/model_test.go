package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/boxflow/boxflow/internal/agent/provider"
)

const routingScenario = `
name: routing
steps:
  - trigger: agent:DecisionRouter
    text: box_hub
  - tool_calls:
      - name: box_hub_ask
        args:
          prompt: key features
  - trigger: tool_result:box_hub_ask
    text: Box AI summarizes documents.
`

func userRequest(text string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(`You are an agent. Your internal name is "DecisionRouter".`, genai.RoleUser),
		},
	}
}

func collect(t *testing.T, llm model.LLM, req *model.LLMRequest) *model.LLMResponse {
	t.Helper()
	var out *model.LLMResponse
	for resp, err := range llm.GenerateContent(context.Background(), req, false) {
		require.NoError(t, err)
		out = resp
	}
	require.NotNil(t, out)
	return out
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(routingScenario))
	require.NoError(t, err)
	assert.Equal(t, "routing", s.Name)
	assert.Len(t, s.Steps, 3)
	assert.Equal(t, "box_hub_ask", s.Steps[1].ToolCalls[0].Name)
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "no name", yaml: "steps:\n  - text: hi\n", want: "scenario name is required"},
		{name: "no steps", yaml: "name: x\n", want: "at least one step"},
		{name: "empty step", yaml: "name: x\nsteps:\n  - trigger: a\n", want: "step[0]: must have either text or tool_calls"},
		{name: "unnamed tool", yaml: "name: x\nsteps:\n  - tool_calls:\n      - args: {}\n", want: "step[0].tool_calls[0]: name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routingScenario), 0o600))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "routing", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuiltinDemoScenario(t *testing.T) {
	s, err := LoadBuiltinScenario(DefaultScenario)
	require.NoError(t, err)
	assert.True(t, s.Settings.Loop)

	_, err = LoadBuiltinScenario("nope")
	assert.Error(t, err)
}

func TestMatchesTrigger(t *testing.T) {
	req := request{agent: "box_Search_Agent", content: "find budget\n[tool_result:box_generic_search] {}"}

	assert.True(t, matchesTrigger("", req))
	assert.True(t, matchesTrigger("user_message", req))
	assert.True(t, matchesTrigger("tool_result:box_generic_search", req))
	assert.False(t, matchesTrigger("tool_result:box_AI_ask", req))
	assert.True(t, matchesTrigger("agent:box_search_agent", req))
	assert.False(t, matchesTrigger("agent:DecisionRouter", req))
	assert.True(t, matchesTrigger("contains:BUDGET", req))
	assert.True(t, matchesTrigger("budget", req))
	assert.False(t, matchesTrigger("contract", req))
}

func TestMockLLMFollowsScenario(t *testing.T) {
	s, err := ParseScenario([]byte(routingScenario))
	require.NoError(t, err)
	llm := NewMockLLMFromScenario(s)
	assert.Equal(t, "mock:routing", llm.Name())

	resp := collect(t, llm, userRequest("What are the key features of Box AI?"))
	require.Len(t, resp.Content.Parts, 1)
	assert.Equal(t, "box_hub", resp.Content.Parts[0].Text)

	resp = collect(t, llm, userRequest("What are the key features of Box AI?"))
	require.Len(t, resp.Content.Parts, 1)
	call := resp.Content.Parts[0].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "box_hub_ask", call.Name)
	assert.Equal(t, "key features", call.Args["prompt"])

	withResult := userRequest("What are the key features of Box AI?")
	withResult.Contents = append(withResult.Contents, &genai.Content{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
			Name:     "box_hub_ask",
			Response: map[string]any{"result": "Box AI summarizes documents."},
		}}},
	})
	resp = collect(t, llm, withResult)
	assert.Equal(t, "Box AI summarizes documents.", resp.Content.Parts[0].Text)

	resp = collect(t, llm, userRequest("again"))
	assert.Contains(t, resp.Content.Parts[0].Text, "no more steps")

	assert.Equal(t, 4, llm.RequestCount())
	log := llm.ConversationLog()
	require.Len(t, log, 4)
	assert.Equal(t, "DecisionRouter", log[0].Agent)
	assert.Equal(t, []string{"box_hub_ask"}, log[1].ToolCalls)

	llm.Reset()
	assert.Equal(t, 0, llm.RequestCount())
}

func TestMockLLMLoops(t *testing.T) {
	s, err := LoadBuiltinScenario(DefaultScenario)
	require.NoError(t, err)
	llm := NewMockLLMFromScenario(s)

	for range len(s.Steps) {
		collect(t, llm, userRequest("x [tool_result:box_generic_search]"))
	}
	resp := collect(t, llm, userRequest("next question"))
	assert.Equal(t, "box_search", resp.Content.Parts[0].Text)
}

func TestMockLLMHonorsCancellation(t *testing.T) {
	s, err := ParseScenario([]byte(routingScenario))
	require.NoError(t, err)
	llm := NewMockLLMFromScenario(s, WithThinkingDelay(0))
	s.Settings.ThinkingDelayMs = 10_000
	s.Steps[0].DelayMs = 10_000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range llm.GenerateContent(ctx, userRequest("hi"), false) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

type fakeProvider struct {
	system   string
	messages []provider.Message
	tools    []provider.ToolDefinition
	resp     *provider.Response
}

func (f *fakeProvider) Chat(_ context.Context, systemPrompt string, messages []provider.Message, tools []provider.ToolDefinition) (*provider.Response, error) {
	f.system, f.messages, f.tools = systemPrompt, messages, tools
	return f.resp, nil
}
func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "claude-test" }

func TestAnthropicLLMConvertsRequestAndResponse(t *testing.T) {
	fake := &fakeProvider{resp: &provider.Response{
		ToolCalls:  []provider.ToolUseBlock{{ID: "toolu_1", Name: "box_generic_search", Input: []byte(`{"prompt":"budget"}`)}},
		StopReason: provider.StopReasonToolUse,
		Usage:      provider.Usage{InputTokens: 30, OutputTokens: 5},
	}}
	llm := NewAnthropicLLMFromProvider(fake)
	assert.Equal(t, "claude-test", llm.Name())

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("find the budget", genai.RoleUser),
			genai.NewContentFromText("For context: [DecisionRouter] said: box_search", genai.RoleUser),
			{Role: string(genai.RoleModel), Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "box_generic_search", Args: map[string]any{"prompt": "budget"}}}}},
			{Role: string(genai.RoleUser), Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{ID: "c1", Name: "box_generic_search", Response: map[string]any{"result": "No Box content found matching 'budget'."}}}}},
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are the Box Search Agent.", genai.RoleUser),
			Tools: []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        "box_generic_search",
				Description: "Search Box",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"prompt": {Type: genai.TypeString}},
					Required:   []string{"prompt"},
				},
			}}}},
		},
	}

	resp := collect(t, llm, req)

	assert.Equal(t, "You are the Box Search Agent.", fake.system)
	require.Len(t, fake.messages, 3)
	assert.Equal(t, provider.RoleUser, fake.messages[0].Role)
	assert.Equal(t, "find the budget\nFor context: [DecisionRouter] said: box_search", fake.messages[0].Content)
	assert.Equal(t, provider.RoleAssistant, fake.messages[1].Role)
	assert.JSONEq(t, `{"prompt":"budget"}`, string(fake.messages[1].ToolUse[0].Input))
	require.Len(t, fake.messages[2].ToolResult, 1)
	assert.Equal(t, "No Box content found matching 'budget'.", fake.messages[2].ToolResult[0].Content)
	assert.False(t, fake.messages[2].ToolResult[0].IsError)

	require.Len(t, fake.tools, 1)
	assert.Equal(t, "object", fake.tools[0].InputSchema["type"])
	assert.Equal(t, []string{"prompt"}, fake.tools[0].InputSchema["required"])

	require.Len(t, resp.Content.Parts, 1)
	assert.Equal(t, "box_generic_search", resp.Content.Parts[0].FunctionCall.Name)
	assert.Equal(t, "budget", resp.Content.Parts[0].FunctionCall.Args["prompt"])
	assert.Equal(t, int32(35), resp.UsageMetadata.TotalTokenCount)
}

func TestToolResultFromResponse(t *testing.T) {
	errResult := toolResultFromResponse(&genai.FunctionResponse{ID: "c1", Response: map[string]any{"error": "boom"}})
	assert.True(t, errResult.IsError)
	assert.Equal(t, "boom", errResult.Content)

	other := toolResultFromResponse(&genai.FunctionResponse{ID: "c2", Response: map[string]any{"a": 1.0}})
	assert.JSONEq(t, `{"a":1}`, other.Content)
}

func TestNewSelectsModel(t *testing.T) {
	ctx := context.Background()

	llm, err := New(ctx, Options{Name: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock:demo", llm.Name())

	llm, err = New(ctx, Options{Name: "mock:demo"})
	require.NoError(t, err)
	assert.Equal(t, "mock:demo", llm.Name())

	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routingScenario), 0o600))
	llm, err = New(ctx, Options{Name: "mock:" + path})
	require.NoError(t, err)
	assert.Equal(t, "mock:routing", llm.Name())

	llm, err = New(ctx, Options{Name: "claude-sonnet-4-5", AnthropicAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", llm.Name())

	_, err = New(ctx, Options{Name: "gpt-4o"})
	assert.ErrorContains(t, err, "unsupported model")
}
