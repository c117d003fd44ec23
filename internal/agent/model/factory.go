package model

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/boxflow/boxflow/internal/agent/provider"
)

// Options selects and configures a model.
type Options struct {
	// Name is a Gemini model ("gemini-2.0-flash"), a Claude model
	// ("claude-sonnet-4-5"), "mock" for the builtin demo script, or
	// "mock:<path.yaml>" for a scenario file
	Name string

	GoogleAPIKey     string
	AnthropicAPIKey  string
	AnthropicBaseURL string
}

// New creates the model named in opts.
func New(ctx context.Context, opts Options) (model.LLM, error) {
	name := strings.TrimSpace(opts.Name)

	switch {
	case name == "mock":
		scenario, err := LoadBuiltinScenario(DefaultScenario)
		if err != nil {
			return nil, err
		}
		return NewMockLLMFromScenario(scenario), nil

	case strings.HasPrefix(name, "mock:"):
		ref := strings.TrimPrefix(name, "mock:")
		if !strings.HasSuffix(ref, ".yaml") && !strings.HasSuffix(ref, ".yml") {
			scenario, err := LoadBuiltinScenario(ref)
			if err != nil {
				return nil, err
			}
			return NewMockLLMFromScenario(scenario), nil
		}
		return NewMockLLM(ref)

	case strings.HasPrefix(name, "gemini-"):
		llm, err := gemini.NewModel(ctx, name, &genai.ClientConfig{
			APIKey:  opts.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model %s: %w", name, err)
		}
		return llm, nil

	case strings.HasPrefix(name, "claude-"):
		return NewAnthropicLLM(provider.Config{
			Model:      name,
			APIKey:     opts.AnthropicAPIKey,
			BaseURL:    opts.AnthropicBaseURL,
			MaxRetries: -1,
		})

	default:
		return nil, fmt.Errorf("unsupported model %q: expected gemini-*, claude-*, mock or mock:<scenario>", opts.Name)
	}
}
