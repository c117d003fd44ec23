package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boxflow/boxflow/internal/logging"
)

// metricsServer serves /metrics for the agent commands, which have no other
// HTTP surface. It is a lifecycle component.
type metricsServer struct {
	addr     string
	gatherer prometheus.Gatherer
	server   *http.Server
	listener net.Listener
	logger   *logging.Logger
}

func newMetricsServer(addr string, gatherer prometheus.Gatherer) *metricsServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &metricsServer{
		addr:     addr,
		gatherer: gatherer,
		logger:   logging.GetLogger("metrics"),
	}
}

func (m *metricsServer) Name() string {
	return "metrics"
}

// Start binds the address before returning so a busy port fails startup.
func (m *metricsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}
	m.listener = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server failed: %v", err)
		}
	}()
	m.logger.Info("Serving metrics on http://%s/metrics", ln.Addr())
	return nil
}

func (m *metricsServer) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Addr is the bound address; empty before Start.
func (m *metricsServer) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}
