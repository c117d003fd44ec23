package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every configuration variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range Defaults() {
		for _, name := range []string{upper(key), envPrefix + upper(key)} {
			if old, ok := os.LookupEnv(name); ok {
				require.NoError(t, os.Unsetenv(name))
				t.Cleanup(func() { _ = os.Setenv(name, old) })
			}
		}
	}
}

func upper(key string) string {
	b := []byte(key)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "https://api.box.com/2.0", cfg.BoxBaseURL)
	assert.Equal(t, PlaceholderHubToken, cfg.BoxHubToken)
	assert.Equal(t, PlaceholderHubID, cfg.BoxHubID)
	assert.Equal(t, PlaceholderHubID, cfg.BoxGTMHubID, "GTM hub defaults to the hub id")
	assert.Equal(t, "MyDomainName.my.salesforce.com", cfg.SalesforceDomain)
	assert.Equal(t, "v63.0", cfg.SalesforceAPIVersion)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "boxflow.yaml", `
box_hub_token: from-file
box_hub_id: "111"
model: mock
http_timeout: 5s
`)
	t.Setenv("BOX_HUB_TOKEN", "from-env")
	t.Setenv("BOXFLOW_BOX_GTM_HUB_ID", "222")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.BoxHubToken, "env overrides file")
	assert.Equal(t, "111", cfg.BoxHubID, "file overrides defaults")
	assert.Equal(t, "222", cfg.BoxGTMHubID)
	assert.Equal(t, "mock", cfg.Model)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, ".env", "SALESFORCE_SEARCH_TOKEN=sf-token\nBOX_HUB_ID=999\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("SALESFORCE_SEARCH_TOKEN")
		_ = os.Unsetenv("BOX_HUB_ID")
	})

	cfg, err := Load(Options{DotEnvFiles: []string{filepath.Join(t.TempDir(), "missing.env"), path}})
	require.NoError(t, err)

	assert.Equal(t, "sf-token", cfg.SalesforceToken)
	assert.Equal(t, "999", cfg.BoxHubID)
	assert.Equal(t, "999", cfg.BoxGTMHubID)
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BoxBaseURL:           "https://api.box.com/2.0",
			SalesforceDomain:     "acme.my.salesforce.com",
			SalesforceAPIVersion: "v63.0",
			Model:                "mock",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"relative box url", func(c *Config) { c.BoxBaseURL = "api.box.com" }, "box_base_url"},
		{"salesforce url instead of host", func(c *Config) { c.SalesforceDomain = "https://acme.my.salesforce.com" }, "salesforce_domain"},
		{"bad api version", func(c *Config) { c.SalesforceAPIVersion = "63.0" }, "salesforce_api_version"},
		{"empty model", func(c *Config) { c.Model = "" }, "model"},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, "http_timeout"},
		{"tracing without endpoint", func(c *Config) { c.TracingEnabled = true }, "tracing_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	cfg := &Config{
		BoxMetadataToken: PlaceholderMetadataToken,
		BoxHubToken:      "real",
		BoxEnterpriseID:  "42",
		BoxHubID:         PlaceholderHubID,
		BoxGTMHubID:      "7",
		SalesforceToken:  PlaceholderSalesforceToken,
	}

	assert.Equal(t, []string{"box_metadata_token", "box_hub_id", "salesforce_search_token"}, cfg.Placeholders())
}

func TestIntegrations(t *testing.T) {
	cfg := &Config{
		BoxBaseURL:           "https://api.box.com/2.0",
		BoxHubToken:          "tok",
		BoxHubID:             "1",
		BoxGTMHubID:          "2",
		SalesforceDomain:     "acme.my.salesforce.com",
		SalesforceAPIVersion: "v63.0",
		SalesforceToken:      "sf",
		HTTPTimeout:          3 * time.Second,
	}

	instances := cfg.Integrations()
	require.Len(t, instances, 2)
	require.NoError(t, ValidateIntegrations(instances))

	assert.Equal(t, "box", instances[0].Type)
	assert.Equal(t, "2", instances[0].Settings["gtm_hub_id"])
	assert.Equal(t, "3s", instances[0].Settings["http_timeout"])
	assert.Equal(t, "salesforce", instances[1].Type)
	assert.Equal(t, "acme.my.salesforce.com", instances[1].Settings["domain"])

	dup := append(instances, IntegrationConfig{Name: "box", Type: "box"})
	err := ValidateIntegrations(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate instance name")
}
