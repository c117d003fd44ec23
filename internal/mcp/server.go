// Package mcp exposes the Box and Salesforce integration tools over the
// Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/boxflow/boxflow/internal/integration"
	"github.com/boxflow/boxflow/internal/logging"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "Box Flow MCP Server"

// Server wraps the mcp-go server. It implements integration.ToolRegistry so
// the integration manager can register tools on Start.
type Server struct {
	mcpServer *server.MCPServer
	version   string
	logger    *logging.Logger

	mu    sync.RWMutex
	tools map[string]integration.Tool
}

// NewServer creates a server with the built-in prompts and no tools.
func NewServer(version string) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		version:   version,
		logger:    logging.GetLogger("mcp"),
		tools:     make(map[string]integration.Tool),
	}
	s.registerPrompts()
	return s
}

// RegisterTool implements integration.ToolRegistry.
func (s *Server) RegisterTool(tool integration.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	schema := tool.InputSchema
	if schema == nil {
		schema = map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %s: %w", tool.Name, err)
	}

	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(tool.Name, tool.Description, schemaJSON), s.toolHandler(tool))
	s.tools[tool.Name] = tool
	s.logger.Debug("Registered tool %s", tool.Name)
	return nil
}

// toolHandler adapts an integration handler. The rendered result text is
// returned as-is; failed API calls are flagged with IsError.
func (s *Server) toolHandler(tool integration.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		res, err := tool.Handler(ctx, args)
		if err != nil {
			s.logger.Warn("Tool %s rejected arguments: %v", tool.Name, err)
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result := mcp.NewToolResultText(res.Render())
		result.IsError = res.IsError()
		return result, nil
	}
}

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tool returns a registered tool by name.
func (s *Server) Tool(name string) (integration.Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerPrompts() {
	findContent := mcp.Prompt{
		Name:        "find_box_content",
		Description: "Search Box for files and folders, then summarize what was found",
		Arguments: []mcp.PromptArgument{
			{Name: "query", Description: "What to look for", Required: true},
		},
	}

	s.mcpServer.AddPrompt(findContent, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		query := request.Params.Arguments["query"]
		if query == "" {
			return nil, fmt.Errorf("query is required")
		}
		text := fmt.Sprintf("Use the box_generic_search tool to find Box content matching %q. "+
			"List every item with its name, type and ID. If nothing is found, say so.", query)
		return userPrompt("Box content search", text), nil
	})

	askFiles := mcp.Prompt{
		Name:        "ask_box_files",
		Description: "Ask Box AI a question about specific files",
		Arguments: []mcp.PromptArgument{
			{Name: "question", Description: "The question to ask", Required: true},
			{Name: "file_ids", Description: "Comma separated Box file IDs", Required: true},
		},
	}

	s.mcpServer.AddPrompt(askFiles, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		question := request.Params.Arguments["question"]
		fileIDs := request.Params.Arguments["file_ids"]
		if question == "" || fileIDs == "" {
			return nil, fmt.Errorf("question and file_ids are required")
		}
		text := fmt.Sprintf("Use the box_AI_ask tool with prompt %q. Build the items argument as a JSON array "+
			"with one {\"type\": \"file\", \"id\": \"<id>\"} object for each of these file IDs: %s.", question, fileIDs)
		return userPrompt("Box AI question about files", text), nil
	})

	askHub := mcp.Prompt{
		Name:        "ask_box_hub",
		Description: "Ask the Box Hub about products or go-to-market topics",
		Arguments: []mcp.PromptArgument{
			{Name: "question", Description: "The question to ask", Required: true},
			{Name: "topic", Description: "Optional: 'gtm' for sales and marketing, anything else for products", Required: false},
		},
	}

	s.mcpServer.AddPrompt(askHub, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		question := request.Params.Arguments["question"]
		if question == "" {
			return nil, fmt.Errorf("question is required")
		}
		tool := "box_hub_ask"
		if request.Params.Arguments["topic"] == "gtm" {
			tool = "box_hub_ask_GTM"
		}
		text := fmt.Sprintf("Use the %s tool to answer: %s", tool, question)
		return userPrompt("Box Hub question", text), nil
	})
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
