package router

import (
	"errors"
	"fmt"
	"iter"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"

	"github.com/boxflow/boxflow/internal/logging"
)

const (
	// AgentName is the name of the dispatcher.
	AgentName = "BoxFlowAgent"

	// AgentDescription is the description of the dispatcher.
	AgentDescription = "Routes a Box query to the Box Hub agent or the Box Search agent based on a classifier decision."

	// ClassifierName is the name of the classifier agent.
	ClassifierName = "DecisionRouter"

	// ClassifierDescription is the description of the classifier agent.
	ClassifierDescription = "Decides whether a query should go to Box Hub or Box Search."

	// StateKeyRoutingDecision is where the classifier writes its label.
	StateKeyRoutingDecision = "routing_decision"
)

// NewDecisionRouter creates the classifier agent. Its final text is stored
// under StateKeyRoutingDecision.
func NewDecisionRouter(llm model.LLM) (agent.Agent, error) {
	return llmagent.New(llmagent.Config{
		Name:        ClassifierName,
		Description: ClassifierDescription,
		Model:       llm,
		Instruction: ClassifierPrompt,
		OutputKey:   StateKeyRoutingDecision,

		// The classifier only labels; it never hands the conversation over
		DisallowTransferToParent: true,
		DisallowTransferToPeers:  true,
		IncludeContents:          llmagent.IncludeContentsDefault,
	})
}

// Config configures the dispatcher.
type Config struct {
	// Name defaults to AgentName
	Name string

	// Classifier writes the label into StateKeyRoutingDecision
	Classifier agent.Agent

	// BoxHub runs when the label is box_hub
	BoxHub agent.Agent

	// BoxSearch runs for every other label
	BoxSearch agent.Agent

	// Metrics is optional
	Metrics *Metrics

	// OnDecision is called once per invocation, after the label is read
	OnDecision func(Decision)
}

type dispatcher struct {
	name       string
	classifier agent.Agent
	boxHub     agent.Agent
	boxSearch  agent.Agent
	metrics    *Metrics
	onDecision func(Decision)
	logger     *logging.Logger
}

// New creates the dispatcher agent. The three sub-agents are attached as its
// children and must not have another parent.
func New(cfg Config) (agent.Agent, error) {
	if cfg.Classifier == nil || cfg.BoxHub == nil || cfg.BoxSearch == nil {
		return nil, errors.New("router: classifier, box hub and box search agents are required")
	}
	name := cfg.Name
	if name == "" {
		name = AgentName
	}

	d := &dispatcher{
		name:       name,
		classifier: cfg.Classifier,
		boxHub:     cfg.BoxHub,
		boxSearch:  cfg.BoxSearch,
		metrics:    cfg.Metrics,
		onDecision: cfg.OnDecision,
		logger:     logging.GetLogger("agent.router"),
	}

	a, err := agent.New(agent.Config{
		Name:        name,
		Description: AgentDescription,
		SubAgents:   []agent.Agent{cfg.Classifier, cfg.BoxSearch, cfg.BoxHub},
		Run:         d.run,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return a, nil
}

// run classifies, then forwards the invocation to exactly one responder.
func (d *dispatcher) run(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		d.logger.Info("[%s] Starting Box content search workflow", d.name)
		d.logger.Info("[%s] Running %s", d.name, d.classifier.Name())

		// Only a label written during this invocation counts; session state
		// can still hold the label of an earlier turn.
		var (
			label     any
			labelSeen bool
		)
		for event, err := range d.classifier.Run(ctx) {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if event != nil {
				if v, ok := event.Actions.StateDelta[StateKeyRoutingDecision]; ok {
					label, labelSeen = v, true
				}
				d.logger.Debug("[%s] Event from %s: %s", d.name, event.Author, eventSummary(event))
			}
			if !yield(event, nil) {
				return
			}
		}

		decision := decideValue(label, labelSeen)
		d.record(decision)

		next := d.boxSearch
		if decision.Route == RouteBoxHub {
			next = d.boxHub
		}
		d.logger.Info("[%s] Running %s", d.name, next.Name())

		for event, err := range next.Run(ctx) {
			if !yield(event, err) {
				return
			}
		}

		d.logger.Info("[%s] Workflow finished", d.name)
	}
}

func (d *dispatcher) record(decision Decision) {
	if decision.Fallback {
		d.logger.WarnWithFields(fmt.Sprintf("[%s] Failed to make routing decision, defaulting to %s", d.name, decision.Route),
			logging.Field("raw", decision.Raw),
			logging.Field("reason", decision.Reason))
	} else {
		d.logger.InfoWithFields(fmt.Sprintf("[%s] Routing decision: %s", d.name, decision.Route),
			logging.Field("raw", decision.Raw))
	}

	d.metrics.observe(decision)

	if d.onDecision != nil {
		d.onDecision(decision)
	}
}

func eventSummary(event *session.Event) string {
	if event.Content == nil {
		return "(no content)"
	}
	for _, part := range event.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			return "call " + part.FunctionCall.Name
		case part.FunctionResponse != nil:
			return "response " + part.FunctionResponse.Name
		case part.Text != "":
			return truncate(part.Text, 80)
		}
	}
	return "(empty)"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
