// Package provider talks to chat-model APIs outside the Gemini family. It
// keeps a small message model of its own so adapters only convert once.
package provider

import (
	"context"
	"encoding/json"
)

// Message represents a conversation message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolUse is set when the assistant wants to call a tool
	ToolUse []ToolUseBlock `json:"tool_use,omitempty"`

	// ToolResult carries tool outputs, one per call
	ToolResult []ToolResultBlock `json:"tool_result,omitempty"`
}

// Role represents the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolUseBlock represents a tool call request from the model.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock represents the result of a tool execution.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition defines a tool that can be called by the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Response represents the model's response.
type Response struct {
	// Content is the text of the response, empty when there are only tool calls
	Content string

	ToolCalls  []ToolUseBlock
	StopReason StopReason
	Usage      Usage
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonError     StopReason = "error"
)

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider sends one chat turn and returns the complete response.
type Provider interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)

	// Name returns the provider name for logging
	Name() string

	// Model returns the model identifier being used
	Model() string
}

// Config contains provider configuration.
type Config struct {
	// Model is the model identifier, e.g. "claude-sonnet-4-5"
	Model string

	// APIKey overrides ANTHROPIC_API_KEY from the environment
	APIKey string

	// BaseURL points the client at a compatible endpoint such as an Azure AI Foundry deployment
	BaseURL string

	MaxTokens int

	// MaxRetries is passed to the SDK; negative means the SDK default
	MaxRetries int
}

// DefaultConfig returns the defaults used when a field is left empty.
func DefaultConfig() Config {
	return Config{
		Model:      "claude-sonnet-4-5",
		MaxTokens:  4096,
		MaxRetries: -1,
	}
}
