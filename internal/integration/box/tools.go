package box

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boxflow/boxflow/internal/integration"
)

// Tool descriptions shown to LLMs and MCP clients.
const (
	DescSearch    = "Searches Box for content matching the prompt and lists the matching files and folders with their type and ID."
	DescHubAsk    = "Sends a prompt to the configured Box AI Hub to get answers based on its associated content."
	DescHubAskGTM = "Sends a prompt to the go-to-market Box AI Hub to get answers about sales, marketing and positioning content."
	DescAIAsk     = `Sends a prompt to Box AI to get answers based on specified file content. items is a JSON string of file objects, e.g. '[{"type": "file", "id": "12345"}]'.`
)

type promptParams struct {
	Prompt string `json:"prompt"`
}

type askItemsParams struct {
	Prompt string `json:"prompt"`
	Items  string `json:"items"`
}

func promptSchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": desc,
			},
		},
		"required": []string{"prompt"},
	}
}

// RegisterTools exposes search, both hub asks and the file ask.
func (b *Integration) RegisterTools(registry integration.ToolRegistry) error {
	tools := []integration.Tool{
		{
			Name:        ToolSearch,
			Description: DescSearch,
			InputSchema: promptSchema("The question or search terms to look for in Box."),
			Handler: b.promptHandler(func(ctx context.Context, c *Client, prompt string) integration.Result {
				return c.Search(ctx, prompt)
			}),
		},
		{
			Name:        ToolHubAsk,
			Description: DescHubAsk,
			InputSchema: promptSchema("The question or prompt to ask the Box Hub."),
			Handler: b.promptHandler(func(ctx context.Context, c *Client, prompt string) integration.Result {
				return c.AskHub(ctx, b.HubID(), prompt)
			}),
		},
		{
			Name:        ToolHubAskGTM,
			Description: DescHubAskGTM,
			InputSchema: promptSchema("The question or prompt to ask the GTM Box Hub."),
			Handler: b.promptHandler(func(ctx context.Context, c *Client, prompt string) integration.Result {
				return c.AskGTMHub(ctx, b.GTMHubID(), prompt)
			}),
		},
		{
			Name:        ToolAIAsk,
			Description: DescAIAsk,
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": "The question or prompt to ask the AI.",
					},
					"items": map[string]interface{}{
						"type":        "string",
						"description": `JSON string of file objects in the format [{"type": "file", "id": "FILE_ID"}]`,
					},
				},
				"required": []string{"prompt", "items"},
			},
			Handler: b.askItemsHandler,
		},
	}

	for _, tool := range tools {
		if err := registry.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register %s: %w", tool.Name, err)
		}
		b.logger.Debug("Registered tool: %s", tool.Name)
	}
	return nil
}

func (b *Integration) promptHandler(call func(ctx context.Context, c *Client, prompt string) integration.Result) integration.ToolHandler {
	return func(ctx context.Context, args []byte) (integration.Result, error) {
		var params promptParams
		if err := json.Unmarshal(args, &params); err != nil {
			return integration.Result{}, fmt.Errorf("invalid parameters: %w", err)
		}
		client, err := b.startedClient()
		if err != nil {
			return integration.Result{}, err
		}
		return call(ctx, client, params.Prompt), nil
	}
}

func (b *Integration) askItemsHandler(ctx context.Context, args []byte) (integration.Result, error) {
	var params askItemsParams
	if err := json.Unmarshal(args, &params); err != nil {
		return integration.Result{}, fmt.Errorf("invalid parameters: %w", err)
	}
	client, err := b.startedClient()
	if err != nil {
		return integration.Result{}, err
	}
	return client.AskItems(ctx, params.Prompt, params.Items), nil
}

func (b *Integration) startedClient() (*Client, error) {
	if b.client == nil {
		return nil, fmt.Errorf("box integration %s is not started", b.name)
	}
	return b.client, nil
}
