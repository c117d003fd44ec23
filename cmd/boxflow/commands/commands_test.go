package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxflow/boxflow/internal/agent/router"
	"github.com/boxflow/boxflow/internal/agent/runner"
	"github.com/boxflow/boxflow/internal/integration"
)

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name         string
		flags        []string
		env          map[string]string
		wantDefault  string
		wantPackages map[string]string
		wantErr      bool
	}{
		{
			name:         "single level",
			flags:        []string{"debug"},
			wantDefault:  "debug",
			wantPackages: map[string]string{},
		},
		{
			name:         "per package",
			flags:        []string{"default=warn", "agent.router=debug"},
			wantDefault:  "warn",
			wantPackages: map[string]string{"agent.router": "debug"},
		},
		{
			name:         "env var applies",
			flags:        []string{"info"},
			env:          map[string]string{"LOG_LEVEL_INTEGRATION_BOX": "error"},
			wantDefault:  "info",
			wantPackages: map[string]string{"integration.box": "error"},
		},
		{
			name:         "flag beats env var",
			flags:        []string{"integration.box=debug"},
			env:          map[string]string{"LOG_LEVEL_INTEGRATION_BOX": "error"},
			wantDefault:  "info",
			wantPackages: map[string]string{"integration.box": "debug"},
		},
		{
			name:    "invalid default",
			flags:   []string{"loud"},
			wantErr: true,
		},
		{
			name:    "invalid package level",
			flags:   []string{"mcp=chatty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			def, pkgs, err := parseLogLevelFlags(tt.flags)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, def)
			assert.Equal(t, tt.wantPackages, pkgs)
		})
	}
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "agent.router", convertEnvKeyToPackageName("LOG_LEVEL_AGENT_ROUTER"))
	assert.Equal(t, "mcp", convertEnvKeyToPackageName("LOG_LEVEL_MCP"))
}

type fakeAsker struct {
	questions []string
	fail      map[string]bool
}

func (f *fakeAsker) Ask(_ context.Context, message string) (*runner.Reply, error) {
	f.questions = append(f.questions, message)
	if f.fail[message] {
		return nil, errors.New("model unavailable")
	}
	return &runner.Reply{Text: "answer to " + message}, nil
}

func TestChatLines(t *testing.T) {
	asker := &fakeAsker{fail: map[string]bool{"broken": true}}
	in := strings.NewReader("first\n\n  broken  \nsecond\n/quit\nnever\n")
	var out bytes.Buffer

	err := chatLines(context.Background(), asker, in, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "broken", "second"}, asker.questions)
	assert.Contains(t, out.String(), "answer to first")
	assert.Contains(t, out.String(), "Error: model unavailable")
	assert.Contains(t, out.String(), "answer to second")
	assert.NotContains(t, out.String(), "never")
}

func TestChatLinesInitialPrompt(t *testing.T) {
	agentPrompt = "hello"
	defer func() { agentPrompt = "" }()

	asker := &fakeAsker{}
	var out bytes.Buffer
	require.NoError(t, chatLines(context.Background(), asker, strings.NewReader(""), &out))
	assert.Equal(t, []string{"hello"}, asker.questions)
}

func TestChatLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	asker := &fakeAsker{fail: map[string]bool{"q": true}}
	err := chatLines(ctx, asker, strings.NewReader("q\nq\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, asker.questions, 1)
}

func TestPrintAnswerRaw(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printAnswer(&out, "**bold**", false))
	assert.Equal(t, "**bold**\n", out.String())
}

func TestToolSet(t *testing.T) {
	set := toolSet{}
	require.NoError(t, set.RegisterTool(integration.Tool{Name: "b"}))
	require.NoError(t, set.RegisterTool(integration.Tool{Name: "a"}))
	assert.Error(t, set.RegisterTool(integration.Tool{Name: "a"}))
	assert.Equal(t, []string{"a", "b"}, set.names())
}

func TestToolArgs(t *testing.T) {
	defer func() { toolArgsJSON = "" }()

	raw, err := toolArgs([]string{"box_generic_search", "budget"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"budget"}`, string(raw))

	_, err = toolArgs([]string{"box_generic_search"})
	assert.Error(t, err)

	toolArgsJSON = `{"prompt":"x","items":"[]"}`
	raw, err = toolArgs([]string{"box_AI_ask"})
	require.NoError(t, err)
	assert.JSONEq(t, toolArgsJSON, string(raw))

	toolArgsJSON = `[1,2]`
	_, err = toolArgs([]string{"box_AI_ask"})
	assert.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Search Box.", firstLine("  Search Box.\nMore detail"))
	assert.Equal(t, "one", firstLine("one"))
}

func TestMetricsServerExposesRoutingDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := router.NewMetrics(reg)
	metrics.Decisions.WithLabelValues("box_hub", "false").Inc()

	srv := newMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, srv.Start(context.Background()))
	defer func() { assert.NoError(t, srv.Stop(context.Background())) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `boxflow_routing_decisions_total{fallback="false",route="box_hub"} 1`)
}

func TestMetricsServerBusyPortFailsStart(t *testing.T) {
	first := newMetricsServer("127.0.0.1:0", prometheus.NewRegistry())
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop(context.Background())

	second := newMetricsServer(first.Addr(), prometheus.NewRegistry())
	assert.Error(t, second.Start(context.Background()))
	assert.NoError(t, second.Stop(context.Background()))
}
