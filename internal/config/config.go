package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Placeholder values shipped as defaults. A token still equal to one of these
// was never configured; requests will reach the API and fail with 401.
const (
	PlaceholderMetadataToken   = "YOUR_METADATA_TOKEN_HERE"
	PlaceholderHubToken        = "YOUR_HUB_TOKEN_HERE"
	PlaceholderEnterpriseID    = "YOUR_BOX_ENTERPRISE_ID_HERE"
	PlaceholderHubID           = "YOUR_BOX_HUB_ID_HERE"
	PlaceholderSalesforceToken = "YOUR_METADATA_TOKEN_HERE"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// envPrefix is accepted in front of every key, e.g. BOXFLOW_MODEL.
const envPrefix = "BOXFLOW_"

// Config holds all process configuration. It is read-only after Load.
type Config struct {
	// BoxBaseURL is the Box API root (no trailing slash)
	BoxBaseURL string `koanf:"box_base_url"`

	// BoxMetadataToken is loaded for parity with the Box metadata API; no tool uses it
	BoxMetadataToken string `koanf:"box_metadata_token"`

	// BoxHubToken is the bearer token for Box search and Box AI ask
	BoxHubToken string `koanf:"box_hub_token"`

	BoxEnterpriseID string `koanf:"box_enterprise_id"`

	// BoxHubID is the hub queried by box_hub_ask
	BoxHubID string `koanf:"box_hub_id"`

	// BoxGTMHubID is the hub queried by box_hub_ask_GTM, defaults to BoxHubID
	BoxGTMHubID string `koanf:"box_gtm_hub_id"`

	SalesforceDomain     string `koanf:"salesforce_domain"`
	SalesforceAPIVersion string `koanf:"salesforce_api_version"`
	SalesforceToken      string `koanf:"salesforce_search_token"`

	// Model selects the LLM: gemini-*, claude-*, mock or mock:<scenario.yaml>
	Model           string `koanf:"model"`
	GoogleAPIKey    string `koanf:"google_api_key"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`

	// AnthropicBaseURL points claude-* models at a compatible endpoint
	AnthropicBaseURL string `koanf:"anthropic_base_url"`

	// HTTPTimeout bounds each outbound API call; zero means no timeout
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// AuditLog is the JSONL file agent events are appended to; empty disables auditing
	AuditLog string `koanf:"audit_log"`

	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`

	// TracingCAPath enables TLS to the collector with this CA bundle
	TracingCAPath string `koanf:"tracing_ca_path"`

	// TracingTLSInsecure enables TLS without certificate verification
	TracingTLSInsecure bool `koanf:"tracing_tls_insecure"`
}

// Defaults returns the built-in values for every key.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"box_base_url":            "https://api.box.com/2.0",
		"box_metadata_token":      PlaceholderMetadataToken,
		"box_hub_token":           PlaceholderHubToken,
		"box_enterprise_id":       PlaceholderEnterpriseID,
		"box_hub_id":              PlaceholderHubID,
		"box_gtm_hub_id":          "",
		"salesforce_domain":       "MyDomainName.my.salesforce.com",
		"salesforce_api_version":  "v63.0",
		"salesforce_search_token": PlaceholderSalesforceToken,
		"model":                   DefaultModel,
		"google_api_key":          "",
		"anthropic_api_key":       "",
		"anthropic_base_url":      "",
		"http_timeout":            "0s",
		"audit_log":               "",
		"tracing_enabled":         false,
		"tracing_endpoint":        "",
		"tracing_ca_path":         "",
		"tracing_tls_insecure":    false,
	}
}

// Options controls where Load reads from.
type Options struct {
	// ConfigFile is an optional YAML file layered over the defaults
	ConfigFile string

	// DotEnvFiles are loaded into the process environment first. Missing files are skipped.
	DotEnvFiles []string
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, in increasing order of precedence.
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(opts.DotEnvFiles); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", opts.ConfigFile, err)
		}
	}

	known := Defaults()
	if err := k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key := envKey(name)
		if _, ok := known[key]; !ok {
			return "", nil
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.BoxGTMHubID == "" {
		cfg.BoxGTMHubID = cfg.BoxHubID
	}
	cfg.BoxBaseURL = strings.TrimRight(cfg.BoxBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps BOX_HUB_TOKEN and BOXFLOW_BOX_HUB_TOKEN to box_hub_token.
func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, envPrefix))
}

func loadDotEnv(paths []string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv.Load never overrides variables already set in the environment
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable. Placeholder tokens are
// not errors; see Placeholders.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BoxBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewConfigError(fmt.Sprintf("box_base_url must be an absolute URL, got %q", c.BoxBaseURL))
	}

	if c.SalesforceDomain == "" || strings.Contains(c.SalesforceDomain, "/") {
		return NewConfigError(fmt.Sprintf("salesforce_domain must be a bare host name, got %q", c.SalesforceDomain))
	}

	if !strings.HasPrefix(c.SalesforceAPIVersion, "v") {
		return NewConfigError(fmt.Sprintf("salesforce_api_version must look like v63.0, got %q", c.SalesforceAPIVersion))
	}

	if c.Model == "" {
		return NewConfigError("model must not be empty")
	}

	if c.HTTPTimeout < 0 {
		return NewConfigError("http_timeout must not be negative")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("tracing_endpoint must be set when tracing is enabled")
	}

	return nil
}

// Placeholders lists the keys whose values are still the shipped placeholders.
func (c *Config) Placeholders() []string {
	var keys []string
	check := func(key, value, placeholder string) {
		if value == placeholder {
			keys = append(keys, key)
		}
	}
	check("box_metadata_token", c.BoxMetadataToken, PlaceholderMetadataToken)
	check("box_hub_token", c.BoxHubToken, PlaceholderHubToken)
	check("box_enterprise_id", c.BoxEnterpriseID, PlaceholderEnterpriseID)
	check("box_hub_id", c.BoxHubID, PlaceholderHubID)
	check("box_gtm_hub_id", c.BoxGTMHubID, PlaceholderHubID)
	check("salesforce_search_token", c.SalesforceToken, PlaceholderSalesforceToken)
	return keys
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
