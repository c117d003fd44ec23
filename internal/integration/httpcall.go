package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boxflow/boxflow/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient returns a traced HTTP client. A zero timeout means none.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Send executes req with a bearer token and returns the body of a successful
// response. When the call fails the returned Result is non-nil and describes
// the failure as seen from source.
func Send(client *http.Client, req *http.Request, token, source string, logger *logging.Logger) ([]byte, *Result) {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("Error during %s call: %v", source, err)
		return nil, &Result{Kind: KindAPIError, Source: source, Err: err}
	}
	defer resp.Body.Close()

	logger.Info("%s API response status: %d", source, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Result{Kind: KindUnexpected, Source: source, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Error("%s request failed: status=%d body=%s", source, resp.StatusCode, string(body))
		return nil, &Result{Kind: KindAPIError, Source: source, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// DecodeBody unmarshals a successful response body into v.
func DecodeBody(body []byte, v interface{}, source string) *Result {
	if err := json.Unmarshal(body, v); err != nil {
		return &Result{Kind: KindUnexpected, Source: source, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}
