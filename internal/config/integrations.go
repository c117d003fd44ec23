package config

import (
	"fmt"
)

// IntegrationConfig describes one integration instance for the integration manager.
type IntegrationConfig struct {
	// Name is the unique instance name
	Name string

	// Type selects the registered factory ("box", "salesforce")
	Type string

	Enabled bool

	// Settings is handed to the factory; each type reads its own keys
	Settings map[string]interface{}
}

// Integrations returns the instances implied by the configuration: one Box
// instance and one Salesforce instance.
func (c *Config) Integrations() []IntegrationConfig {
	return []IntegrationConfig{
		{
			Name:    "box",
			Type:    "box",
			Enabled: true,
			Settings: map[string]interface{}{
				"base_url":     c.BoxBaseURL,
				"token":        c.BoxHubToken,
				"hub_id":       c.BoxHubID,
				"gtm_hub_id":   c.BoxGTMHubID,
				"http_timeout": c.HTTPTimeout.String(),
			},
		},
		{
			Name:    "salesforce",
			Type:    "salesforce",
			Enabled: true,
			Settings: map[string]interface{}{
				"domain":       c.SalesforceDomain,
				"api_version":  c.SalesforceAPIVersion,
				"token":        c.SalesforceToken,
				"http_timeout": c.HTTPTimeout.String(),
			},
		},
	}
}

// ValidateIntegrations checks names are present and unique.
func ValidateIntegrations(instances []IntegrationConfig) error {
	seen := make(map[string]bool, len(instances))
	for i, inst := range instances {
		if inst.Name == "" {
			return NewConfigError(fmt.Sprintf("instance[%d]: name is required", i))
		}
		if inst.Type == "" {
			return NewConfigError(fmt.Sprintf("instance[%d] (%s): type is required", i, inst.Name))
		}
		if seen[inst.Name] {
			return NewConfigError(fmt.Sprintf("instance[%d]: duplicate instance name %q", i, inst.Name))
		}
		seen[inst.Name] = true
	}
	return nil
}

// IsPlaceholder reports whether value is one of the shipped placeholder defaults.
func IsPlaceholder(value string) bool {
	switch value {
	case PlaceholderMetadataToken, PlaceholderHubToken, PlaceholderEnterpriseID, PlaceholderHubID:
		return true
	}
	return false
}
