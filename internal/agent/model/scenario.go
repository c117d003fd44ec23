package model

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/*.yaml
var builtinScenarios embed.FS

// DefaultScenario is used by the bare "mock" model name.
const DefaultScenario = "demo"

// Scenario is a scripted sequence of model responses loaded from YAML.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Settings    ScenarioSettings `yaml:"settings,omitempty"`
	Steps       []ScenarioStep   `yaml:"steps"`
}

// ScenarioSettings holds timing settings. Zero delays respond at once.
type ScenarioSettings struct {
	ThinkingDelayMs int `yaml:"thinking_delay_ms,omitempty"`
	ToolDelayMs     int `yaml:"tool_delay_ms,omitempty"`

	// Loop restarts the script once every step has run
	Loop bool `yaml:"loop,omitempty"`
}

// ScenarioStep is one model response.
type ScenarioStep struct {
	// Trigger selects when the step may run. Empty auto-advances.
	//   "user_message"          any request
	//   "tool_result:<tool>"    the request carries a result of <tool>
	//   "agent:<name>"          the request comes from the named agent
	//   "contains:<text>"       the request mentions text, case-insensitive
	// Anything else is a plain case-insensitive substring match.
	Trigger string `yaml:"trigger,omitempty"`

	Text      string         `yaml:"text,omitempty"`
	ToolCalls []MockToolCall `yaml:"tool_calls,omitempty"`

	// DelayMs overrides the thinking delay for this step
	DelayMs int `yaml:"delay_ms,omitempty"`
}

// MockToolCall is a tool call the mock model makes.
type MockToolCall struct {
	Name string                 `yaml:"name"`
	Args map[string]interface{} `yaml:"args"`
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenario loads a scenario from a YAML file. A leading ~ expands to the
// home directory.
func LoadScenario(path string) (*Scenario, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// #nosec G304 -- scenario paths are operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return ParseScenario(data)
}

// LoadBuiltinScenario loads one of the scenarios shipped in the binary.
func LoadBuiltinScenario(name string) (*Scenario, error) {
	data, err := builtinScenarios.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("builtin scenario %q not found", name)
	}
	return ParseScenario(data)
}

// Validate checks that the scenario is valid.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario must have at least one step")
	}

	for i, step := range s.Steps {
		if step.Text == "" && len(step.ToolCalls) == 0 {
			return fmt.Errorf("step[%d]: must have either text or tool_calls", i)
		}
		for j, tc := range step.ToolCalls {
			if tc.Name == "" {
				return fmt.Errorf("step[%d].tool_calls[%d]: name is required", i, j)
			}
		}
	}
	return nil
}

// ThinkingDelayMs returns the delay before a step, using the step override if set.
func (s *Scenario) ThinkingDelayMs(stepIndex int) int {
	if stepIndex >= 0 && stepIndex < len(s.Steps) && s.Steps[stepIndex].DelayMs > 0 {
		return s.Steps[stepIndex].DelayMs
	}
	return s.Settings.ThinkingDelayMs
}

// request is what a trigger is matched against.
type request struct {
	agent   string
	content string
}

// StepMatcher walks a scenario's steps in order.
type StepMatcher struct {
	scenario  *Scenario
	stepIndex int
}

// NewStepMatcher creates a new step matcher for a scenario.
func NewStepMatcher(scenario *Scenario) *StepMatcher {
	return &StepMatcher{scenario: scenario}
}

// next returns the first remaining step whose trigger matches, skipping over
// steps that did not. Returns nil when the script is exhausted.
func (m *StepMatcher) next(req request) *ScenarioStep {
	for i := m.stepIndex; i < len(m.scenario.Steps); i++ {
		step := &m.scenario.Steps[i]
		if matchesTrigger(step.Trigger, req) {
			m.stepIndex = i + 1
			return step
		}
	}
	return nil
}

func matchesTrigger(trigger string, req request) bool {
	switch {
	case trigger == "", trigger == "user_message":
		return true
	case strings.HasPrefix(trigger, "tool_result:"):
		return strings.Contains(req.content, "[tool_result:"+strings.TrimPrefix(trigger, "tool_result:")+"]")
	case strings.HasPrefix(trigger, "agent:"):
		return strings.EqualFold(req.agent, strings.TrimPrefix(trigger, "agent:"))
	case strings.HasPrefix(trigger, "contains:"):
		return containsFold(req.content, strings.TrimPrefix(trigger, "contains:"))
	default:
		return containsFold(req.content, trigger)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// CurrentStepIndex returns the current step index.
func (m *StepMatcher) CurrentStepIndex() int {
	return m.stepIndex
}

// Reset rewinds to the first step.
func (m *StepMatcher) Reset() {
	m.stepIndex = 0
}

// HasMoreSteps returns true if there are more steps to execute.
func (m *StepMatcher) HasMoreSteps() bool {
	return m.stepIndex < len(m.scenario.Steps)
}
