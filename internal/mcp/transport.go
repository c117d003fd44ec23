package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/boxflow/boxflow/internal/integration"
)

// DefaultEndpointPath is where MCP requests are served over HTTP.
const DefaultEndpointPath = "/mcp"

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	Addr string

	// EndpointPath defaults to DefaultEndpointPath
	EndpointPath string

	// Gatherer backs /metrics; defaults to the Prometheus default registry
	Gatherer prometheus.Gatherer

	// Health reports per-instance integration health on /health; optional
	Health func(ctx context.Context) map[string]integration.HealthStatus

	// ShutdownTimeout bounds the graceful shutdown. Default: 5s
	ShutdownTimeout time.Duration
}

func (o HTTPOptions) endpointPath() string {
	switch {
	case o.EndpointPath == "":
		return DefaultEndpointPath
	case !strings.HasPrefix(o.EndpointPath, "/"):
		return "/" + o.EndpointPath
	default:
		return o.EndpointPath
	}
}

// NewHTTPHandler returns the mux serving MCP, /health and /metrics.
func (s *Server) NewHTTPHandler(opts HTTPOptions) http.Handler {
	endpointPath := opts.endpointPath()

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Stateless sessions keep clients that never send a session ID working
	streamable := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)

	mux := http.NewServeMux()
	mux.Handle(endpointPath, otelhttp.NewHandler(streamable, "mcp"))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.writeHealth(w, r, opts.Health)
	})
	return mux
}

type healthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Tools        []string          `json:"tools"`
	Integrations map[string]string `json:"integrations,omitempty"`
}

// writeHealth always answers 200: a degraded integration still serves
// requests, it just reports its placeholder credentials.
func (s *Server) writeHealth(w http.ResponseWriter, r *http.Request, health func(context.Context) map[string]integration.HealthStatus) {
	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Tools:   s.ToolNames(),
	}
	if health != nil {
		resp.Integrations = make(map[string]string)
		for name, status := range health(r.Context()) {
			resp.Integrations[name] = status.String()
			if status != integration.Healthy {
				resp.Status = "degraded"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// ListenHTTP serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenHTTP(ctx context.Context, opts HTTPOptions) error {
	timeout := opts.ShutdownTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           s.NewHTTPHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server on %s (endpoint: %s)", opts.Addr, opts.endpointPath())

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("HTTP server stopped")
		return nil
	}
}

// ServeStdio serves newline-delimited JSON-RPC on in/out until in closes or
// ctx is cancelled. Logs must not go to out while this runs.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Starting stdio transport")
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, in, out)
}
