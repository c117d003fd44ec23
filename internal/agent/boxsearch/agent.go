package boxsearch

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/boxflow/boxflow/internal/agent/tools"
	"github.com/boxflow/boxflow/internal/integration/box"
)

// AgentName is the name of the Box Search agent.
const AgentName = "box_Search_Agent"

// AgentDescription is the description of the Box Search agent.
const AgentDescription = "Searches Box content and answers questions about specific Box files with Box AI."

// ToolNames are the tools the agent is given.
var ToolNames = []string{box.ToolSearch, box.ToolAIAsk}

// New creates a new Box Search agent.
func New(llm model.LLM, deps tools.Deps) (agent.Agent, error) {
	agentTools, err := tools.Build(deps, ToolNames...)
	if err != nil {
		return nil, err
	}

	return llmagent.New(llmagent.Config{
		Name:            AgentName,
		Description:     AgentDescription,
		Model:           llm,
		Instruction:     SystemPrompt,
		Tools:           agentTools,
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}
