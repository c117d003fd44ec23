package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/boxflow/boxflow/internal/logging"
	"github.com/boxflow/boxflow/internal/mcp"
)

var (
	httpAddr        string
	transportType   string
	mcpEndpointPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server that exposes the Box and
Salesforce tools to MCP clients.

Supports two transport modes:
  - http: streamable HTTP (default), with /health and /metrics endpoints
  - stdio: standard input/output, for subprocess-based MCP clients`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", getEnv("MCP_HTTP_ADDR", ":8082"), "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&transportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", getEnv("MCP_ENDPOINT", mcp.DefaultEndpointPath), "HTTP endpoint path for MCP requests")
}

func runMCP(cmd *cobra.Command, args []string) error {
	if transportType != "http" && transportType != "stdio" {
		return fmt.Errorf("invalid transport type: %s (must be 'http' or 'stdio')", transportType)
	}

	// stdout carries protocol messages in stdio mode
	closer, err := setupLog(logLevelFlags, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()
	logger := logging.GetLogger("mcp")
	logger.Info("Starting Box Flow MCP Server (transport: %s)", transportType)

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	server := mcp.NewServer(Version)
	svc, err := startServices(ctx, cfg, server, "")
	if err != nil {
		return err
	}
	defer svc.stop()
	logger.Info("Registered tools: %v", server.ToolNames())

	switch transportType {
	case "stdio":
		err = server.ServeStdio(ctx, os.Stdin, os.Stdout)
	default:
		err = server.ListenHTTP(ctx, mcp.HTTPOptions{
			Addr:            httpAddr,
			EndpointPath:    mcpEndpointPath,
			Health:          svc.integrations.Health,
			ShutdownTimeout: 5 * time.Second,
		})
	}
	if err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
