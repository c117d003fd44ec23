// Package root assembles the named agent compositions the runner can serve.
package root

import (
	"fmt"
	"sort"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/workflowagents/sequentialagent"
	"google.golang.org/adk/model"

	"github.com/boxflow/boxflow/internal/agent/boxhub"
	"github.com/boxflow/boxflow/internal/agent/boxsearch"
	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/salesforce"
	"github.com/boxflow/boxflow/internal/agent/tools"
)

const (
	// Flow classifies each query and runs either Box Hub or Box Search.
	Flow = "flow"

	// Swarm runs every specialist in sequence on each query.
	Swarm = "swarm"

	// SwarmAgentName is the name of the sequential root agent.
	SwarmAgentName = "root_agent"
)

// Deps holds what the compositions are built from.
type Deps struct {
	LLM   model.LLM
	Tools tools.Deps

	// Metrics and OnDecision are passed to the dispatcher in Flow
	Metrics    *router.Metrics
	OnDecision func(router.Decision)
}

type builder func(Deps) (agent.Agent, error)

var compositions = map[string]builder{
	Flow:  newFlow,
	Swarm: newSwarm,
}

// Names lists the available compositions.
func Names() []string {
	names := make([]string, 0, len(compositions))
	for name := range compositions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named composition. Every call builds a fresh agent tree,
// since an agent can only be attached to one parent.
func New(name string, deps Deps) (agent.Agent, error) {
	build, ok := compositions[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent composition %q (available: %v)", name, Names())
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("composition %s: model is required", name)
	}
	return build(deps)
}

func newFlow(deps Deps) (agent.Agent, error) {
	classifier, err := router.NewDecisionRouter(deps.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", router.ClassifierName, err)
	}

	search, err := boxsearch.New(deps.LLM, deps.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", boxsearch.AgentName, err)
	}

	hub, err := boxhub.New(deps.LLM, deps.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", boxhub.AgentName, err)
	}

	return router.New(router.Config{
		Classifier: classifier,
		BoxHub:     hub,
		BoxSearch:  search,
		Metrics:    deps.Metrics,
		OnDecision: deps.OnDecision,
	})
}

func newSwarm(deps Deps) (agent.Agent, error) {
	search, err := boxsearch.New(deps.LLM, deps.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", boxsearch.AgentName, err)
	}

	hub, err := boxhub.New(deps.LLM, deps.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", boxhub.AgentName, err)
	}

	sf, err := salesforce.New(deps.LLM, deps.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", salesforce.AgentName, err)
	}

	return sequentialagent.New(sequentialagent.Config{
		AgentConfig: agent.Config{
			Name:        SwarmAgentName,
			Description: "Runs Box search, Box Hub and Salesforce search in sequence on each query.",
			SubAgents:   []agent.Agent{search, hub, sf},
		},
	})
}
