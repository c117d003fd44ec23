// Package salesforce provides the Salesforce parameterized search integration.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boxflow/boxflow/internal/config"
	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
)

// Version is the Salesforce integration implementation version.
const Version = "1.0.0"

// DescSearch is shown to LLMs and MCP clients.
const DescSearch = "Searches Salesforce records matching the prompt and lists them with their type and ID."

func init() {
	if err := integration.RegisterFactory("salesforce", NewSalesforceIntegration); err != nil {
		logging.GetLogger("integration.salesforce").Warn("Failed to register salesforce factory: %v", err)
	}
}

// Integration implements integration.Integration for Salesforce.
type Integration struct {
	name        string
	domain      string
	apiVersion  string
	token       string
	httpTimeout time.Duration
	client      *Client
	metrics     *integration.ToolMetrics
	logger      *logging.Logger
}

// NewSalesforceIntegration is the factory registered under type "salesforce".
func NewSalesforceIntegration(name string, settings map[string]interface{}) (integration.Integration, error) {
	domain, _ := settings["domain"].(string)
	if domain == "" {
		return nil, fmt.Errorf("invalid salesforce settings: domain is required")
	}
	apiVersion, _ := settings["api_version"].(string)
	if apiVersion == "" {
		apiVersion = "v63.0"
	}
	token, _ := settings["token"].(string)

	var timeout time.Duration
	if raw, _ := settings["http_timeout"].(string); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid salesforce settings: http_timeout: %w", err)
		}
		timeout = d
	}

	return &Integration{
		name:        name,
		domain:      domain,
		apiVersion:  apiVersion,
		token:       token,
		httpTimeout: timeout,
		metrics:     integration.SharedToolMetrics(),
		logger:      logging.GetLogger("integration.salesforce"),
	}, nil
}

// Metadata returns the integration's identifying information.
func (s *Integration) Metadata() integration.IntegrationMetadata {
	return integration.IntegrationMetadata{
		Name:        s.name,
		Version:     Version,
		Description: "Salesforce parameterized search",
		Type:        "salesforce",
	}
}

// Start builds the HTTP client.
func (s *Integration) Start(ctx context.Context) error {
	s.logger.Info("Starting Salesforce integration: %s (domain: %s, api: %s)", s.name, s.domain, s.apiVersion)
	if s.placeholderToken() {
		s.logger.Warn("Salesforce search token is still a placeholder; requests will fail until it is configured")
	}
	s.client = NewClient(s.domain, s.apiVersion, s.token, integration.NewHTTPClient(s.httpTimeout), s.metrics, s.logger)
	return nil
}

// Stop releases the client.
func (s *Integration) Stop(ctx context.Context) error {
	s.client = nil
	return nil
}

// Health reports Degraded while the token is a placeholder.
func (s *Integration) Health(ctx context.Context) integration.HealthStatus {
	if s.client == nil {
		return integration.Stopped
	}
	if s.placeholderToken() {
		return integration.Degraded
	}
	return integration.Healthy
}

func (s *Integration) placeholderToken() bool {
	return s.token == "" || s.token == config.PlaceholderSalesforceToken
}

// Client returns the started client, or nil before Start.
func (s *Integration) Client() *Client {
	return s.client
}

// RegisterTools exposes Salesforce_generic_search.
func (s *Integration) RegisterTools(registry integration.ToolRegistry) error {
	return registry.RegisterTool(integration.Tool{
		Name:        ToolSearch,
		Description: DescSearch,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The question or prompt to ask the Salesforce search.",
				},
			},
			"required": []string{"prompt"},
		},
		Handler: func(ctx context.Context, args []byte) (integration.Result, error) {
			var params struct {
				Prompt string `json:"prompt"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return integration.Result{}, fmt.Errorf("invalid parameters: %w", err)
			}
			if s.client == nil {
				return integration.Result{}, fmt.Errorf("salesforce integration %s is not started", s.name)
			}
			return s.client.Search(ctx, params.Prompt), nil
		},
	})
}
