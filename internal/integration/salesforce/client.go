package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
)

const source = "Salesforce Search"

// ToolSearch is the tool name, also used as the metric label.
const ToolSearch = "Salesforce_generic_search"

type searchResponse struct {
	Entries []integration.SearchEntry `json:"entries"`
}

// Client calls the Salesforce parameterized search endpoint.
type Client struct {
	baseURL    string
	apiVersion string
	token      string
	httpClient *http.Client
	metrics    *integration.ToolMetrics
	logger     *logging.Logger
}

// NewClient creates a client for https://<domain>. metrics may be nil.
func NewClient(domain, apiVersion, token string, httpClient *http.Client, metrics *integration.ToolMetrics, logger *logging.Logger) *Client {
	return NewClientWithBaseURL("https://"+domain, apiVersion, token, httpClient, metrics, logger)
}

// NewClientWithBaseURL lets tests point the client at a local server.
func NewClientWithBaseURL(baseURL, apiVersion, token string, httpClient *http.Client, metrics *integration.ToolMetrics, logger *logging.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		token:      token,
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search runs a parameterized search across the org.
func (c *Client) Search(ctx context.Context, prompt string) (res integration.Result) {
	started := time.Now()
	defer func() { c.metrics.Observe(ToolSearch, started, res) }()

	c.logger.Info("Finding Salesforce content from: '%s'", prompt)

	reqURL := fmt.Sprintf("%s/services/data/%s/parameterizedSearch/?q=%s", c.baseURL, c.apiVersion, url.QueryEscape(prompt))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return integration.Result{Kind: integration.KindUnexpected, Source: source, Err: err}
	}

	body, failed := integration.Send(c.httpClient, req, c.token, source, c.logger)
	if failed != nil {
		return *failed
	}

	var parsed searchResponse
	if failed := integration.DecodeBody(body, &parsed, source); failed != nil {
		c.logger.Error("An unexpected error occurred in %s: %v", ToolSearch, failed.Err)
		return *failed
	}

	if len(parsed.Entries) == 0 {
		return integration.Result{Kind: integration.KindNoResults, Source: source, Prompt: prompt}
	}
	return integration.Result{Kind: integration.KindFound, Source: source, Prompt: prompt, Entries: parsed.Entries}
}
