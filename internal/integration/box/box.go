// Package box provides the Box integration: content search and Box AI ask.
package box

import (
	"context"
	"fmt"
	"time"

	"github.com/boxflow/boxflow/internal/config"
	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
)

// Version is the Box integration implementation version.
const Version = "1.0.0"

func init() {
	if err := integration.RegisterFactory("box", NewBoxIntegration); err != nil {
		logging.GetLogger("integration.box").Warn("Failed to register box factory: %v", err)
	}
}

// Settings is the per-instance configuration read from the settings map.
type Settings struct {
	BaseURL     string
	Token       string
	HubID       string
	GTMHubID    string
	HTTPTimeout time.Duration
}

// Integration implements integration.Integration for Box.
type Integration struct {
	name     string
	settings Settings
	client   *Client
	metrics  *integration.ToolMetrics
	logger   *logging.Logger
}

// NewBoxIntegration is the factory registered under type "box".
func NewBoxIntegration(name string, settings map[string]interface{}) (integration.Integration, error) {
	s, err := parseSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("invalid box settings: %w", err)
	}
	return New(name, s, integration.SharedToolMetrics()), nil
}

// New creates an instance with explicit settings. metrics may be nil.
func New(name string, s Settings, metrics *integration.ToolMetrics) *Integration {
	if s.GTMHubID == "" {
		s.GTMHubID = s.HubID
	}
	return &Integration{
		name:     name,
		settings: s,
		metrics:  metrics,
		logger:   logging.GetLogger("integration.box"),
	}
}

func parseSettings(m map[string]interface{}) (Settings, error) {
	var s Settings
	var ok bool
	if s.BaseURL, ok = m["base_url"].(string); !ok || s.BaseURL == "" {
		return s, fmt.Errorf("base_url is required")
	}
	s.Token, _ = m["token"].(string)
	s.HubID, _ = m["hub_id"].(string)
	s.GTMHubID, _ = m["gtm_hub_id"].(string)
	if raw, _ := m["http_timeout"].(string); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return s, fmt.Errorf("http_timeout: %w", err)
		}
		s.HTTPTimeout = d
	}
	return s, nil
}

// Metadata returns the integration's identifying information.
func (b *Integration) Metadata() integration.IntegrationMetadata {
	return integration.IntegrationMetadata{
		Name:        b.name,
		Version:     Version,
		Description: "Box content search and Box AI ask",
		Type:        "box",
	}
}

// Start builds the HTTP client. Placeholder credentials are logged, not rejected.
func (b *Integration) Start(ctx context.Context) error {
	b.logger.Info("Starting Box integration: %s (baseURL: %s)", b.name, b.settings.BaseURL)
	for _, key := range b.placeholders() {
		b.logger.Warn("Box %s is still a placeholder; requests will fail until it is configured", key)
	}

	b.client = NewClient(b.settings.BaseURL, b.settings.Token, integration.NewHTTPClient(b.settings.HTTPTimeout), b.metrics, b.logger)
	return nil
}

// Stop releases the client.
func (b *Integration) Stop(ctx context.Context) error {
	b.client = nil
	return nil
}

// Health reports Degraded while a credential is still a placeholder.
func (b *Integration) Health(ctx context.Context) integration.HealthStatus {
	if b.client == nil {
		return integration.Stopped
	}
	if len(b.placeholders()) > 0 {
		return integration.Degraded
	}
	return integration.Healthy
}

func (b *Integration) placeholders() []string {
	var keys []string
	if config.IsPlaceholder(b.settings.Token) || b.settings.Token == "" {
		keys = append(keys, "token")
	}
	if config.IsPlaceholder(b.settings.HubID) {
		keys = append(keys, "hub_id")
	}
	return keys
}

// Client returns the started client, or nil before Start.
func (b *Integration) Client() *Client {
	return b.client
}

// HubID returns the hub queried by box_hub_ask.
func (b *Integration) HubID() string {
	return b.settings.HubID
}

// GTMHubID returns the hub queried by box_hub_ask_GTM.
func (b *Integration) GTMHubID() string {
	return b.settings.GTMHubID
}
