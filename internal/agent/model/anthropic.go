// Package model builds the model.LLM the agents run on: Gemini through the
// ADK, Claude through the Anthropic provider, or a scripted mock.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/boxflow/boxflow/internal/agent/provider"
)

// AnthropicLLM implements model.LLM on top of a provider.Provider.
type AnthropicLLM struct {
	provider provider.Provider
}

// NewAnthropicLLM creates an adapter backed by the Anthropic provider.
func NewAnthropicLLM(cfg provider.Config) (*AnthropicLLM, error) {
	p, err := provider.NewAnthropicProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
	}
	return &AnthropicLLM{provider: p}, nil
}

// NewAnthropicLLMFromProvider wraps an existing provider.
func NewAnthropicLLMFromProvider(p provider.Provider) *AnthropicLLM {
	return &AnthropicLLM{provider: p}
}

// Name returns the model identifier.
func (a *AnthropicLLM) Name() string {
	return a.provider.Model()
}

// GenerateContent implements model.LLM.GenerateContent.
// It converts ADK request format to our provider format, calls the provider,
// and converts the response back to ADK format.
func (a *AnthropicLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		// Convert request
		systemPrompt := extractSystemPrompt(req.Config)
		messages := convertContentsToMessages(req.Contents)
		tools := convertToolsFromADK(req.Config)

		// Non-streaming only; stream is ignored
		resp, err := a.provider.Chat(ctx, systemPrompt, messages, tools)
		if err != nil {
			yield(nil, fmt.Errorf("%s chat failed: %w", a.provider.Name(), err))
			return
		}

		// Convert response to ADK format
		llmResp := convertResponseToLLMResponse(resp)
		yield(llmResp, nil)
	}
}

// extractSystemPrompt extracts the system instruction from the config.
func extractSystemPrompt(cfg *genai.GenerateContentConfig) string {
	if cfg == nil || cfg.SystemInstruction == nil {
		return ""
	}

	var parts []string
	for _, part := range cfg.SystemInstruction.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// convertContentsToMessages converts ADK contents to provider messages.
// Consecutive contents with the same role are merged, since the Messages API
// requires user and assistant turns to alternate. That happens when the ADK
// replays another agent's output as user context.
func convertContentsToMessages(contents []*genai.Content) []provider.Message {
	var messages []provider.Message

	for _, content := range contents {
		if content == nil {
			continue
		}

		msg := provider.Message{Role: provider.RoleUser}
		if content.Role == string(genai.RoleModel) {
			msg.Role = provider.RoleAssistant
		}

		for _, part := range content.Parts {
			if part == nil {
				continue
			}

			if part.Text != "" && !part.Thought {
				msg.Content = joinText(msg.Content, part.Text)
			}

			if part.FunctionCall != nil {
				msg.ToolUse = append(msg.ToolUse, toolUseFromCall(part.FunctionCall))
			}

			if part.FunctionResponse != nil {
				msg.ToolResult = append(msg.ToolResult, toolResultFromResponse(part.FunctionResponse))
			}
		}

		if msg.Content == "" && len(msg.ToolUse) == 0 && len(msg.ToolResult) == 0 {
			continue
		}

		if n := len(messages); n > 0 && messages[n-1].Role == msg.Role {
			prev := &messages[n-1]
			prev.Content = joinText(prev.Content, msg.Content)
			prev.ToolUse = append(prev.ToolUse, msg.ToolUse...)
			prev.ToolResult = append(prev.ToolResult, msg.ToolResult...)
			continue
		}
		messages = append(messages, msg)
	}

	return messages
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}

func toolUseFromCall(call *genai.FunctionCall) provider.ToolUseBlock {
	toolUse := provider.ToolUseBlock{
		ID:    call.ID,
		Name:  call.Name,
		Input: json.RawMessage(`{}`),
	}
	if call.Args != nil {
		if argsJSON, err := json.Marshal(call.Args); err == nil {
			toolUse.Input = argsJSON
		}
	}
	return toolUse
}

// toolResultFromResponse marks a result as an error when the ADK reported a
// failed tool call, which it does with a response holding only "error".
func toolResultFromResponse(resp *genai.FunctionResponse) provider.ToolResultBlock {
	result := provider.ToolResultBlock{ToolUseID: resp.ID}
	if resp.Response == nil {
		return result
	}

	if errVal, ok := resp.Response["error"]; ok && len(resp.Response) == 1 {
		result.Content = fmt.Sprint(errVal)
		result.IsError = true
		return result
	}

	// Tools here answer {"result": "<text>"}; pass the text through as is
	if text, ok := resp.Response["result"].(string); ok && len(resp.Response) == 1 {
		result.Content = text
		return result
	}

	if respJSON, err := json.Marshal(resp.Response); err == nil {
		result.Content = string(respJSON)
	}
	return result
}

// convertToolsFromADK flattens the function declarations of every tool.
func convertToolsFromADK(cfg *genai.GenerateContentConfig) []provider.ToolDefinition {
	if cfg == nil {
		return nil
	}

	var defs []provider.ToolDefinition
	for _, t := range cfg.Tools {
		if t == nil {
			continue
		}
		for _, fn := range t.FunctionDeclarations {
			if fn == nil {
				continue
			}
			defs = append(defs, provider.ToolDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				InputSchema: schemaToMap(fn.Parameters, fn.ParametersJsonSchema),
			})
		}
	}
	return defs
}

// schemaToMap prefers the raw JSON schema, which is what functiontool
// produces, and falls back to converting a genai.Schema.
func schemaToMap(schema *genai.Schema, jsonSchema any) map[string]interface{} {
	if jsonSchema != nil {
		if m, ok := jsonSchema.(map[string]interface{}); ok {
			return m
		}
		if data, err := json.Marshal(jsonSchema); err == nil {
			var m map[string]interface{}
			if json.Unmarshal(data, &m) == nil {
				return m
			}
		}
	}

	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}

	out := map[string]interface{}{"type": schemaType(schema.Type)}
	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]interface{}, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = schemaToMap(prop, nil)
		}
		out["properties"] = props
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	if schema.Items != nil {
		out["items"] = schemaToMap(schema.Items, nil)
	}
	if len(schema.Enum) > 0 {
		out["enum"] = schema.Enum
	}
	return out
}

func schemaType(t genai.Type) string {
	switch t {
	case genai.TypeString:
		return "string"
	case genai.TypeNumber:
		return "number"
	case genai.TypeInteger:
		return "integer"
	case genai.TypeBoolean:
		return "boolean"
	case genai.TypeArray:
		return "array"
	default:
		return "object"
	}
}

// convertResponseToLLMResponse converts a provider.Response to model.LLMResponse.
func convertResponseToLLMResponse(resp *provider.Response) *model.LLMResponse {
	if resp == nil {
		return &model.LLMResponse{TurnComplete: true}
	}

	parts := make([]*genai.Part, 0, 1+len(resp.ToolCalls))
	if resp.Content != "" {
		parts = append(parts, genai.NewPartFromText(resp.Content))
	}
	for _, call := range resp.ToolCalls {
		var args map[string]any
		if len(call.Input) > 0 {
			_ = json.Unmarshal(call.Input, &args)
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
		})
	}

	finishReason := genai.FinishReasonStop
	switch resp.StopReason {
	case provider.StopReasonMaxTokens:
		finishReason = genai.FinishReasonMaxTokens
	case provider.StopReasonError:
		finishReason = genai.FinishReasonOther
	}

	// #nosec G115 -- token counts are bounded by the model context window
	usage := &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(resp.Usage.InputTokens),
		CandidatesTokenCount: int32(resp.Usage.OutputTokens),
		TotalTokenCount:      int32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return &model.LLMResponse{
		Content:       &genai.Content{Role: string(genai.RoleModel), Parts: parts},
		FinishReason:  finishReason,
		TurnComplete:  true,
		UsageMetadata: usage,
	}
}

// Ensure AnthropicLLM implements model.LLM at compile time.
var _ model.LLM = (*AnthropicLLM)(nil)
