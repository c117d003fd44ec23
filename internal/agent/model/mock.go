package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"sync"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// MockLLM implements model.LLM by replaying a scenario. It makes no network
// calls and is shared by every agent of a composition, so steps are consumed
// in the order the agents ask.
type MockLLM struct {
	scenario *Scenario
	matcher  *StepMatcher

	thinkingDelay time.Duration
	toolDelay     time.Duration

	mu              sync.Mutex
	requestCount    int
	conversationLog []ConversationEntry
}

// ConversationEntry records a request/response pair for debugging.
type ConversationEntry struct {
	Timestamp time.Time
	Agent     string
	Request   string
	Response  string
	ToolCalls []string
}

// MockLLMOption configures a MockLLM.
type MockLLMOption func(*MockLLM)

// WithThinkingDelay sets the thinking delay.
func WithThinkingDelay(d time.Duration) MockLLMOption {
	return func(m *MockLLM) {
		m.thinkingDelay = d
	}
}

// WithToolDelay sets the per-tool delay.
func WithToolDelay(d time.Duration) MockLLMOption {
	return func(m *MockLLM) {
		m.toolDelay = d
	}
}

// NewMockLLM creates a MockLLM from a scenario file path.
func NewMockLLM(scenarioPath string, opts ...MockLLMOption) (*MockLLM, error) {
	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	return NewMockLLMFromScenario(scenario, opts...), nil
}

// NewMockLLMFromScenario creates a MockLLM from a loaded scenario.
func NewMockLLMFromScenario(scenario *Scenario, opts ...MockLLMOption) *MockLLM {
	m := &MockLLM{
		scenario:      scenario,
		matcher:       NewStepMatcher(scenario),
		thinkingDelay: time.Duration(scenario.Settings.ThinkingDelayMs) * time.Millisecond,
		toolDelay:     time.Duration(scenario.Settings.ToolDelayMs) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the model identifier.
func (m *MockLLM) Name() string {
	return "mock:" + m.scenario.Name
}

// GenerateContent implements model.LLM.GenerateContent.
func (m *MockLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		r := request{
			agent:   agentFromRequest(req),
			content: extractRequestContent(req),
		}

		m.mu.Lock()
		m.requestCount++
		step := m.nextStep(r)
		delay := m.thinkingDelay
		if step != nil {
			delay = time.Duration(m.scenario.ThinkingDelayMs(m.matcher.CurrentStepIndex()-1)) * time.Millisecond
		}
		m.mu.Unlock()

		if delay > 0 {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-time.After(delay):
			}
		}

		resp, err := m.buildResponse(ctx, step)
		if err != nil {
			yield(nil, err)
			return
		}

		m.logConversation(r, resp)
		yield(resp, nil)
	}
}

// nextStep must be called with m.mu held.
func (m *MockLLM) nextStep(r request) *ScenarioStep {
	step := m.matcher.next(r)
	if step == nil && m.scenario.Settings.Loop {
		m.matcher.Reset()
		step = m.matcher.next(r)
	}
	return step
}

// buildResponse converts a step to an LLM response. A nil step means the
// script is exhausted.
func (m *MockLLM) buildResponse(ctx context.Context, step *ScenarioStep) (*model.LLMResponse, error) {
	if step == nil {
		return &model.LLMResponse{
			Content:      genai.NewContentFromText("[Mock scenario completed - no more steps]", genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
			TurnComplete: true,
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     100,
				CandidatesTokenCount: 10,
				TotalTokenCount:      110,
			},
		}, nil
	}

	parts := make([]*genai.Part, 0, 1+len(step.ToolCalls))
	if step.Text != "" {
		parts = append(parts, genai.NewPartFromText(step.Text))
	}

	for i, tc := range step.ToolCalls {
		if i > 0 && m.toolDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.toolDelay):
			}
		}

		args := tc.Args
		if args == nil {
			args = make(map[string]interface{})
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   fmt.Sprintf("mock_call_%d", i),
				Name: tc.Name,
				Args: args,
			},
		})
	}

	// #nosec G115 -- mock estimates are small
	return &model.LLMResponse{
		Content:      &genai.Content{Role: string(genai.RoleModel), Parts: parts},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(len(parts) * 50),
			CandidatesTokenCount: int32(len(step.Text) / 4),
			TotalTokenCount:      int32(len(parts)*50 + len(step.Text)/4),
		},
	}, nil
}

func (m *MockLLM) logConversation(r request, resp *model.LLMResponse) {
	entry := ConversationEntry{
		Timestamp: time.Now(),
		Agent:     r.agent,
		Request:   truncateString(r.content, 200),
	}

	if resp != nil && resp.Content != nil {
		var textParts []string
		for _, part := range resp.Content.Parts {
			if part.Text != "" {
				textParts = append(textParts, truncateString(part.Text, 100))
			}
			if part.FunctionCall != nil {
				entry.ToolCalls = append(entry.ToolCalls, part.FunctionCall.Name)
			}
		}
		entry.Response = strings.Join(textParts, " | ")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversationLog = append(m.conversationLog, entry)
}

// ConversationLog returns a copy of the requests seen so far.
func (m *MockLLM) ConversationLog() []ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConversationEntry{}, m.conversationLog...)
}

// RequestCount returns how many requests the mock has answered.
func (m *MockLLM) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// Reset rewinds the script and clears the log.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matcher.Reset()
	m.requestCount = 0
	m.conversationLog = nil
}

// The ADK puts the agent's name into the system instruction.
var agentNamePattern = regexp.MustCompile(`internal name is "([^"]+)"`)

func agentFromRequest(req *model.LLMRequest) string {
	if req == nil || req.Config == nil {
		return ""
	}
	match := agentNamePattern.FindStringSubmatch(extractSystemPrompt(req.Config))
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// extractRequestContent flattens the request for trigger matching. Tool
// results appear as "[tool_result:<name>] <json>".
func extractRequestContent(req *model.LLMRequest) string {
	if req == nil {
		return ""
	}

	var parts []string
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
			if part.FunctionResponse != nil {
				respJSON, _ := json.Marshal(part.FunctionResponse.Response)
				parts = append(parts, fmt.Sprintf("[tool_result:%s] %s", part.FunctionResponse.Name, string(respJSON)))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Ensure MockLLM implements model.LLM at compile time.
var _ model.LLM = (*MockLLM)(nil)
