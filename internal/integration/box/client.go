package box

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
)

const (
	sourceSearch = "Box Search"
	sourceHub    = "Box Hub"
	sourceAsk    = "Box Ask"

	modeMultiple = "multiple_item_qa"
)

// Tool names, also used as metric labels.
const (
	ToolSearch    = "box_generic_search"
	ToolHubAsk    = "box_hub_ask"
	ToolHubAskGTM = "box_hub_ask_GTM"
	ToolAIAsk     = "box_AI_ask"
)

// AskItem is one entry of the Box AI ask "items" list.
type AskItem struct {
	Type string                 `json:"type"`
	ID   integration.FlexibleID `json:"id"`
}

type askRequest struct {
	Mode              string    `json:"mode"`
	Items             []AskItem `json:"items"`
	Prompt            string    `json:"prompt"`
	LLM               *struct{} `json:"llm,omitempty"`
	IncludesCitations bool      `json:"includes_citations"`
}

type askResponse struct {
	Answer           string  `json:"answer"`
	CompletionReason *string `json:"completion_reason"`
}

type searchResponse struct {
	Entries []integration.SearchEntry `json:"entries"`
}

// Client calls the Box search and Box AI ask endpoints with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    *integration.ToolMetrics
	logger     *logging.Logger
}

// NewClient creates a Box client. baseURL is the API root, e.g.
// "https://api.box.com/2.0". metrics may be nil.
func NewClient(baseURL, token string, httpClient *http.Client, metrics *integration.ToolMetrics, logger *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search runs a full-text search over the Box content visible to the token.
func (c *Client) Search(ctx context.Context, prompt string) (res integration.Result) {
	defer c.observe(ToolSearch, time.Now(), &res)

	c.logger.Info("Finding Box content from: '%s'", prompt)

	reqURL := fmt.Sprintf("%s/search?query=%s", c.baseURL, url.QueryEscape(prompt))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return unexpected(sourceSearch, err)
	}

	body, failed := integration.Send(c.httpClient, req, c.token, sourceSearch, c.logger)
	if failed != nil {
		return *failed
	}

	var parsed searchResponse
	if failed := integration.DecodeBody(body, &parsed, sourceSearch); failed != nil {
		return *failed
	}

	if len(parsed.Entries) == 0 {
		return integration.Result{Kind: integration.KindNoResults, Source: sourceSearch, Prompt: prompt}
	}
	return integration.Result{Kind: integration.KindFound, Source: sourceSearch, Prompt: prompt, Entries: parsed.Entries}
}

// AskHub asks Box AI a question scoped to one hub.
func (c *Client) AskHub(ctx context.Context, hubID, prompt string) integration.Result {
	return c.askHub(ctx, ToolHubAsk, hubID, prompt)
}

// AskGTMHub is AskHub against the go-to-market hub. Calls are counted under
// box_hub_ask_GTM.
func (c *Client) AskGTMHub(ctx context.Context, hubID, prompt string) integration.Result {
	return c.askHub(ctx, ToolHubAskGTM, hubID, prompt)
}

func (c *Client) askHub(ctx context.Context, tool, hubID, prompt string) (res integration.Result) {
	defer c.observe(tool, time.Now(), &res)

	c.logger.Info("Asking Box Hub (ID: %s): '%s'", hubID, prompt)

	payload := askRequest{
		Mode:              modeMultiple,
		Items:             []AskItem{{Type: "hubs", ID: integration.FlexibleID(hubID)}},
		Prompt:            prompt,
		LLM:               &struct{}{},
		IncludesCitations: false,
	}
	return c.ask(ctx, payload, sourceHub, sourceHub)
}

// AskItems asks Box AI a question about caller-supplied files. items is the
// raw JSON from the caller; when it cannot be parsed no request is made.
func (c *Client) AskItems(ctx context.Context, prompt, items string) (res integration.Result) {
	defer c.observe(ToolAIAsk, time.Now(), &res)

	c.logger.Info("Asking Box AI: '%s'", prompt)

	parsed, err := ParseItems(items)
	if err != nil {
		c.logger.Error("Invalid JSON format for items: %v", err)
		return integration.Result{Kind: integration.KindInvalidInput, Source: sourceAsk, Prompt: prompt, Err: err}
	}

	payload := askRequest{
		Mode:              modeMultiple,
		Items:             parsed,
		Prompt:            prompt,
		IncludesCitations: true,
	}
	// API failures on this endpoint are reported as "Box Hub" failures, the
	// empty-answer case as "Box Ask".
	return c.ask(ctx, payload, sourceHub, sourceAsk)
}

func (c *Client) ask(ctx context.Context, payload askRequest, errSource, answerSource string) integration.Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return unexpected(errSource, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/ask", bytes.NewReader(data))
	if err != nil {
		return unexpected(errSource, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, failed := integration.Send(c.httpClient, req, c.token, errSource, c.logger)
	if failed != nil {
		return *failed
	}

	var parsed askResponse
	if failed := integration.DecodeBody(body, &parsed, errSource); failed != nil {
		return *failed
	}

	if parsed.Answer == "" {
		res := integration.Result{Kind: integration.KindNoAnswer, Source: answerSource, Prompt: payload.Prompt, CompletionReason: parsed.CompletionReason}
		c.logger.Warn("%s", res.Render())
		return res
	}
	return integration.Result{Kind: integration.KindAnswer, Source: answerSource, Prompt: payload.Prompt, Answer: parsed.Answer}
}

func (c *Client) observe(tool string, started time.Time, res *integration.Result) {
	c.metrics.Observe(tool, started, *res)
	if res.Kind == integration.KindUnexpected {
		c.logger.Error("An unexpected error occurred in %s: %v", tool, res.Err)
	}
}

func unexpected(source string, err error) integration.Result {
	return integration.Result{Kind: integration.KindUnexpected, Source: source, Err: err}
}

// ParseItems decodes the caller's item list. A single object is accepted
// and treated as a one-element list; null or an empty list is rejected.
func ParseItems(raw string) ([]AskItem, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		trimmed = "[" + trimmed + "]"
	}

	var items []AskItem
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, fmt.Errorf("items must be a JSON array of file objects: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("items must list at least one file object")
	}
	return items, nil
}
