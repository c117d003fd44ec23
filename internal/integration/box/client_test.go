package box

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *integration.ToolMetrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	metrics := integration.NewToolMetrics(prometheus.NewRegistry())
	return NewClient(srv.URL+"/", "test-token", srv.Client(), metrics, logging.GetLogger("test.box")), metrics
}

func TestSearchFound(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "q3 roadmap & plans", r.URL.Query().Get("query"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"entries":[
			{"name":"Roadmap.pdf","type":"file","id":"123"},
			{"type":"folder","id":456},
			{}
		]}`)
	})

	res := client.Search(context.Background(), "q3 roadmap & plans")

	assert.Equal(t, integration.KindFound, res.Kind)
	assert.Equal(t, "Found the following items:\n"+
		"- Roadmap.pdf (Type: file, ID: 123)\n"+
		"- Unnamed item (Type: folder, ID: 456)\n"+
		"- Unnamed item (Type: unknown, ID: unknown)", res.Render())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues(ToolSearch, "found")))
}

func TestSearchNoResults(t *testing.T) {
	for name, body := range map[string]string{
		"empty entries":  `{"entries":[]}`,
		"absent entries": `{"total_count":0}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			res := client.Search(context.Background(), "nothing here")
			assert.Equal(t, integration.KindNoResults, res.Kind)
			assert.Equal(t, "No Box content found matching 'nothing here'.", res.Render())
		})
	}
}

func TestSearchAPIError(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"unauthorized"}`)
	})

	res := client.Search(context.Background(), "roadmap")

	assert.True(t, res.IsError())
	assert.Equal(t, `API Error: Failed to ask Box Search. Status: 401. Details: {"code":"unauthorized"}`, res.Render())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues(ToolSearch, "api_error")))
}

func TestSearchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "tok", http.DefaultClient, nil, logging.GetLogger("test.box"))

	res := client.Search(context.Background(), "roadmap")

	assert.Equal(t, integration.KindAPIError, res.Kind)
	assert.Equal(t, "API Error: Failed to ask Box Search. No response details.", res.Render())
}

func TestSearchUndecodableBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	})

	res := client.Search(context.Background(), "roadmap")

	assert.Equal(t, integration.KindUnexpected, res.Kind)
	assert.Contains(t, res.Render(), "An unexpected error occurred: parse response:")
}

func TestAskHub(t *testing.T) {
	var payload map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ai/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = io.WriteString(w, `{"answer":"Our Q3 focus is enterprise.","completion_reason":"done"}`)
	})

	res := client.AskHub(context.Background(), "216163155", "What is the Q3 focus?")

	assert.Equal(t, "Our Q3 focus is enterprise.", res.Render())
	assert.Equal(t, "multiple_item_qa", payload["mode"])
	assert.Equal(t, false, payload["includes_citations"])
	assert.Equal(t, "What is the Q3 focus?", payload["prompt"])
	assert.Equal(t, []interface{}{map[string]interface{}{"type": "hubs", "id": "216163155"}}, payload["items"])
}

func TestHubAsksCountedPerTool(t *testing.T) {
	var hubIDs []string
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload askRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Items, 1)
		hubIDs = append(hubIDs, string(payload.Items[0].ID))
		_, _ = io.WriteString(w, `{"answer":"ok"}`)
	})

	client.AskHub(context.Background(), "products-hub", "What does Box Sign cost?")
	client.AskGTMHub(context.Background(), "gtm-hub", "What is our healthcare pitch?")
	client.AskGTMHub(context.Background(), "gtm-hub", "Who are our competitors?")

	assert.Equal(t, []string{"products-hub", "gtm-hub", "gtm-hub"}, hubIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues(ToolHubAsk, "answer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Calls.WithLabelValues(ToolHubAskGTM, "answer")))
}

func TestAskItemsNullSendsNothing(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	for _, items := range []string{"null", "[]", " null "} {
		res := client.AskItems(context.Background(), "q", items)
		assert.Equal(t, integration.KindInvalidInput, res.Kind, items)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestAskHubNoAnswer(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"with reason", `{"answer":"","completion_reason":"content_filtered"}`, "Box Hub did not provide an answer. Reason: content_filtered"},
		{"without reason", `{}`, "Box Hub did not provide an answer. Reason: No reason provided."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			res := client.AskHub(context.Background(), "1", "anything")
			assert.Equal(t, integration.KindNoAnswer, res.Kind)
			assert.Equal(t, tt.want, res.Render())
		})
	}
}

func TestAskItems(t *testing.T) {
	var payload struct {
		Items             []AskItem `json:"items"`
		IncludesCitations bool      `json:"includes_citations"`
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = io.WriteString(w, `{"answer":"The contract renews in May."}`)
	})

	res := client.AskItems(context.Background(), "When does it renew?", ` {"type": "file", "id": "12345"} `)

	assert.Equal(t, integration.KindAnswer, res.Kind)
	assert.Equal(t, "The contract renews in May.", res.Render())
	assert.True(t, payload.IncludesCitations)
	assert.Equal(t, []AskItem{{Type: "file", ID: "12345"}}, payload.Items)
}

func TestAskItemsNoAnswerAndErrorSources(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"completion_reason":"no_content"}`)
	})
	res := client.AskItems(context.Background(), "q", `[{"type":"file","id":"1"}]`)
	assert.Equal(t, "Box Ask did not provide an answer. Reason: no_content", res.Render())

	client, _ = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad item", http.StatusBadRequest)
	})
	res = client.AskItems(context.Background(), "q", `[{"type":"file","id":"1"}]`)
	assert.Equal(t, "API Error: Failed to ask Box Hub. Status: 400. Details: bad item\n", res.Render())
}

func TestAskItemsMalformedSendsNothing(t *testing.T) {
	var calls int32
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	res := client.AskItems(context.Background(), "q", `[{"type": "file", "id": `)

	assert.Equal(t, integration.KindInvalidInput, res.Kind)
	assert.Equal(t, "Error: Invalid JSON format for items parameter. Please provide a properly formatted JSON array of file objects.", res.Render())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Calls.WithLabelValues(ToolAIAsk, "invalid_input")))
}

func TestParseItems(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []AskItem
		wantErr bool
	}{
		{"array", `[{"type":"file","id":"1"},{"type":"file","id":"2"}]`, []AskItem{{"file", "1"}, {"file", "2"}}, false},
		{"single object is wrapped", `{"type":"file","id":"9"}`, []AskItem{{"file", "9"}}, false},
		{"numeric id", `[{"type":"file","id":12345}]`, []AskItem{{"file", "12345"}}, false},
		{"surrounding whitespace", "\n [{\"type\":\"file\",\"id\":\"1\"}] \t", []AskItem{{"file", "1"}}, false},
		{"empty", ``, nil, true},
		{"not json", `file 12345`, nil, true},
		{"scalar", `"12345"`, nil, true},
		{"null", `null`, nil, true},
		{"empty array", `[]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItems(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
