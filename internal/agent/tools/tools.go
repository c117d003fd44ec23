// Package tools wraps the Box and Salesforce clients as ADK function tools.
// Every tool returns {"result": "<text>"}; API failures are part of the text,
// never a Go error, so the model can relay them to the user.
package tools

import (
	"context"
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/integration/box"
	"github.com/boxflow/boxflow/internal/integration/salesforce"
)

// BoxAPI is the subset of box.Client used by the tools.
type BoxAPI interface {
	Search(ctx context.Context, prompt string) integration.Result
	AskHub(ctx context.Context, hubID, prompt string) integration.Result
	AskGTMHub(ctx context.Context, hubID, prompt string) integration.Result
	AskItems(ctx context.Context, prompt, items string) integration.Result
}

// SalesforceAPI is the subset of salesforce.Client used by the tools.
type SalesforceAPI interface {
	Search(ctx context.Context, prompt string) integration.Result
}

// Deps holds what the tools call into.
type Deps struct {
	Box        BoxAPI
	Salesforce SalesforceAPI

	// HubID backs box_hub_ask, GTMHubID backs box_hub_ask_GTM
	HubID    string
	GTMHubID string
}

// PromptArgs is the input of the single-prompt tools.
type PromptArgs struct {
	Prompt string `json:"prompt" jsonschema:"The question or prompt to send."`
}

// AskArgs is the input of box_AI_ask.
type AskArgs struct {
	Prompt string `json:"prompt" jsonschema:"The question or prompt to ask the AI."`
	Items  string `json:"items" jsonschema:"JSON string of file objects in the format [{\"type\": \"file\", \"id\": \"FILE_ID\"}]"`
}

// Output is what every tool returns to the model.
type Output struct {
	Result string `json:"result"`
}

func render(res integration.Result) (Output, error) {
	return Output{Result: res.Render()}, nil
}

// NewBoxGenericSearch creates box_generic_search.
func NewBoxGenericSearch(deps Deps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        box.ToolSearch,
		Description: box.DescSearch,
	}, deps.boxGenericSearch)
}

// NewBoxHubAsk creates box_hub_ask against the configured hub.
func NewBoxHubAsk(deps Deps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        box.ToolHubAsk,
		Description: box.DescHubAsk,
	}, deps.boxHubAsk)
}

// NewBoxHubAskGTM creates box_hub_ask_GTM against the go-to-market hub.
func NewBoxHubAskGTM(deps Deps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        box.ToolHubAskGTM,
		Description: box.DescHubAskGTM,
	}, deps.boxHubAskGTM)
}

// NewBoxAIAsk creates box_AI_ask.
func NewBoxAIAsk(deps Deps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        box.ToolAIAsk,
		Description: box.DescAIAsk,
	}, deps.boxAIAsk)
}

// NewSalesforceGenericSearch creates Salesforce_generic_search.
func NewSalesforceGenericSearch(deps Deps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        salesforce.ToolSearch,
		Description: salesforce.DescSearch,
	}, deps.salesforceGenericSearch)
}

func (d Deps) boxGenericSearch(ctx tool.Context, args PromptArgs) (Output, error) {
	return render(d.Box.Search(ctx, args.Prompt))
}

func (d Deps) boxHubAsk(ctx tool.Context, args PromptArgs) (Output, error) {
	return render(d.Box.AskHub(ctx, d.HubID, args.Prompt))
}

func (d Deps) boxHubAskGTM(ctx tool.Context, args PromptArgs) (Output, error) {
	return render(d.Box.AskGTMHub(ctx, d.GTMHubID, args.Prompt))
}

func (d Deps) boxAIAsk(ctx tool.Context, args AskArgs) (Output, error) {
	return render(d.Box.AskItems(ctx, args.Prompt, args.Items))
}

func (d Deps) salesforceGenericSearch(ctx tool.Context, args PromptArgs) (Output, error) {
	return render(d.Salesforce.Search(ctx, args.Prompt))
}

// Build creates the named tools in order.
func Build(deps Deps, names ...string) ([]tool.Tool, error) {
	constructors := map[string]func(Deps) (tool.Tool, error){
		box.ToolSearch:        NewBoxGenericSearch,
		box.ToolHubAsk:        NewBoxHubAsk,
		box.ToolHubAskGTM:     NewBoxHubAskGTM,
		box.ToolAIAsk:         NewBoxAIAsk,
		salesforce.ToolSearch: NewSalesforceGenericSearch,
	}

	out := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		newTool, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		t, err := newTool(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool %s: %w", name, err)
		}
		out = append(out, t)
	}
	return out, nil
}
