package boxhub

import (
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/boxflow/boxflow/internal/agent/tools"
	"github.com/boxflow/boxflow/internal/integration/box"
)

const (
	// AgentName is the name of the Box Hub agent.
	AgentName = "Box_Hub_Agent"

	// AgentDescription is the description of the Box Hub agent.
	AgentDescription = "Answers product and go-to-market questions from content curated in Box Hubs."

	// GTMAgentName is the name of the go-to-market hub sub-agent.
	GTMAgentName = "Box_Hub_GTM_Agent"

	// GTMAgentDescription is the description of the go-to-market hub sub-agent.
	GTMAgentDescription = "Answers go-to-market questions from the GTM Box Hub."

	// ProductsAgentName is the name of the products hub sub-agent.
	ProductsAgentName = "Box_Hub_Products_Agent"

	// ProductsAgentDescription is the description of the products hub sub-agent.
	ProductsAgentDescription = "Answers general product questions from the products Box Hub."
)

// New creates the Box Hub agent with its GTM and Products sub-agents.
func New(llm model.LLM, deps tools.Deps) (agent.Agent, error) {
	gtm, err := newHubAgent(llm, deps, GTMAgentName, GTMAgentDescription, GTMPrompt, box.ToolHubAskGTM)
	if err != nil {
		return nil, err
	}

	products, err := newHubAgent(llm, deps, ProductsAgentName, ProductsAgentDescription, ProductsPrompt, box.ToolHubAsk)
	if err != nil {
		return nil, err
	}

	return llmagent.New(llmagent.Config{
		Name:            AgentName,
		Description:     AgentDescription,
		Model:           llm,
		Instruction:     SystemPrompt,
		SubAgents:       []agent.Agent{gtm, products},
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}

func newHubAgent(llm model.LLM, deps tools.Deps, name, description, prompt, toolName string) (agent.Agent, error) {
	hubTools, err := tools.Build(deps, toolName)
	if err != nil {
		return nil, fmt.Errorf("failed to create tools for %s: %w", name, err)
	}

	return llmagent.New(llmagent.Config{
		Name:            name,
		Description:     description,
		Model:           llm,
		Instruction:     prompt,
		Tools:           hubTools,
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}
