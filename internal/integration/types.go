package integration

import (
	"context"
)

// Integration is the lifecycle contract for a remote API backend (Box, Salesforce).
type Integration interface {
	// Metadata returns the integration's identifying information
	Metadata() IntegrationMetadata

	// Start prepares the HTTP client. A misconfigured token does not fail
	// Start; the instance reports Degraded instead.
	Start(ctx context.Context) error

	// Stop releases the client.
	Stop(ctx context.Context) error

	// Health returns the current health status of the instance.
	Health(ctx context.Context) HealthStatus

	// RegisterTools exposes the instance's operations as tools.
	RegisterTools(registry ToolRegistry) error
}

// IntegrationMetadata holds identifying information for an integration instance.
type IntegrationMetadata struct {
	// Name is the unique instance name (e.g., "box")
	Name string

	// Version is the integration implementation version (e.g., "1.0.0")
	Version string

	Description string

	// Type selects the factory (e.g., "box", "salesforce")
	Type string
}

// HealthStatus represents the current health state of an integration instance.
type HealthStatus int

const (
	// Healthy indicates the integration is configured and started
	Healthy HealthStatus = iota

	// Degraded indicates the instance serves requests but a credential is
	// still a placeholder, so calls are expected to fail with 401
	Degraded

	// Stopped indicates the integration was explicitly stopped
	Stopped
)

// String returns the string representation of HealthStatus
func (h HealthStatus) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ToolRegistry collects tools from integration instances. The MCP server
// implements it.
type ToolRegistry interface {
	RegisterTool(tool Tool) error
}

// Tool describes one callable operation.
type Tool struct {
	Name        string
	Description string

	// InputSchema is the JSON schema of the arguments object
	InputSchema map[string]interface{}

	Handler ToolHandler
}

// ToolHandler executes a tool. args is the JSON-encoded arguments object.
// An error is returned only when args cannot be decoded; API failures are
// reported through the Result.
type ToolHandler func(ctx context.Context, args []byte) (Result, error)
