// Package salesforce implements the Salesforce Search agent.
package salesforce

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"github.com/boxflow/boxflow/internal/agent/tools"
	sf "github.com/boxflow/boxflow/internal/integration/salesforce"
)

// AgentName is the name of the Salesforce Search agent.
const AgentName = "Salesforce_Search_Agent"

// AgentDescription is the description of the Salesforce Search agent.
const AgentDescription = "Searches Salesforce records such as accounts, contacts and opportunities."

// SystemPrompt is the instruction for the Salesforce Search agent.
const SystemPrompt = `You are the Salesforce Search Agent. You find Salesforce records with the Salesforce_generic_search tool.

- Send short keyword queries built from the names, companies or topics in the user's question.
- List each record with its name, type and ID.
- If the tool output starts with "API Error:" or "An unexpected error occurred:", explain the failure.
- If nothing is found, say so and suggest other keywords.`

// New creates a new Salesforce Search agent.
func New(llm model.LLM, deps tools.Deps) (agent.Agent, error) {
	agentTools, err := tools.Build(deps, sf.ToolSearch)
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
