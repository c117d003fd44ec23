package salesforce

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boxflow/boxflow/internal/config"
	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL(srv.URL, "v63.0", "sf-token", srv.Client(), nil, logging.GetLogger("test.salesforce"))
}

func TestSearchFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v63.0/parameterizedSearch/", r.URL.Path)
		assert.Equal(t, "Acme renewal", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer sf-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"entries":[{"name":"Acme Corp","type":"Account","id":"001xx000003DGb2"}]}`)
	})

	res := client.Search(context.Background(), "Acme renewal")

	assert.Equal(t, "Found the following items:\n- Acme Corp (Type: Account, ID: 001xx000003DGb2)", res.Render())
}

func TestSearchNoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"searchRecords":[]}`)
	})

	res := client.Search(context.Background(), "Globex")

	assert.Equal(t, integration.KindNoResults, res.Kind)
	assert.Equal(t, "No Salesforce content found matching 'Globex'.", res.Render())
}

func TestSearchAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `[{"errorCode":"INSUFFICIENT_ACCESS"}]`)
	})

	res := client.Search(context.Background(), "Acme")

	assert.Equal(t, `API Error: Failed to ask Salesforce Search. Status: 403. Details: [{"errorCode":"INSUFFICIENT_ACCESS"}]`, res.Render())
}

func TestIntegrationLifecycle(t *testing.T) {
	ctx := context.Background()

	inst, err := NewSalesforceIntegration("salesforce", map[string]interface{}{
		"domain": "acme.my.salesforce.com",
		"token":  config.PlaceholderSalesforceToken,
	})
	require.NoError(t, err)

	assert.Equal(t, integration.Stopped, inst.Health(ctx))
	require.NoError(t, inst.Start(ctx))
	assert.Equal(t, integration.Degraded, inst.Health(ctx))
	assert.NotNil(t, inst.(*Integration).Client())

	_, err = NewSalesforceIntegration("salesforce", map[string]interface{}{})
	assert.Error(t, err)
}
