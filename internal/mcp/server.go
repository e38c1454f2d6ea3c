// Package mcp exposes the billing calculators as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/service"
)

// Server represents the MCP server instance
type Server struct {
	config     domain.MCPConfig
	calculator *service.CalculatorService
	logger     *logrus.Logger
	mcpServer  *mcp.Server
	registered []ToolKind
}

// NewServer creates a new MCP server instance and registers every tool.
func NewServer(config domain.MCPConfig, calculator *service.CalculatorService, logger *logrus.Logger) (*Server, error) {
	if config.ServerName == "" {
		config.ServerName = "em-billing-mcp-server"
	}
	if config.ServerVersion == "" {
		config.ServerVersion = "v0.1.0"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    config.ServerName,
		Version: config.ServerVersion,
	}, nil)

	server := &Server{
		config:     config,
		calculator: calculator,
		logger:     logger,
		mcpServer:  mcpServer,
	}

	for _, kind := range AllTools() {
		if err := server.registerTool(kind); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", kind, err)
		}
		logger.WithField("tool_name", kind.String()).Debug("Registered MCP tool")
	}

	logger.WithField("tool_count", len(server.registered)).Info("MCP server initialized")
	return server, nil
}

// registerTool binds one tool kind to its typed handler.
func (s *Server) registerTool(kind ToolKind) error {
	tool := &mcp.Tool{Name: kind.String(), Description: kind.Description()}

	switch kind {
	case ToolClassifyMDM:
		mcp.AddTool(s.mcpServer, tool, s.handleClassifyMDM)
	case ToolCalculateRevenue:
		mcp.AddTool(s.mcpServer, tool, s.handleCalculateRevenue)
	case ToolProjectWellnessRevenue:
		mcp.AddTool(s.mcpServer, tool, s.handleProjectWellnessRevenue)
	case ToolScoreModifier:
		mcp.AddTool(s.mcpServer, tool, s.handleScoreModifier)
	case ToolLookupCode:
		mcp.AddTool(s.mcpServer, tool, s.handleLookupCode)
	default:
		return fmt.Errorf("unhandled tool kind %d", int(kind))
	}

	s.registered = append(s.registered, kind)
	return nil
}

// Tools returns the registered tool kinds.
func (s *Server) Tools() []ToolKind {
	return append([]ToolKind(nil), s.registered...)
}

// MCPServer exposes the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves MCP over the configured transport until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	transport := strings.ToLower(s.config.TransportType)
	if transport == "" {
		transport = "stdio"
	}
	if transport != "stdio" {
		return fmt.Errorf("unsupported MCP transport: %s", s.config.TransportType)
	}

	s.logger.WithFields(logrus.Fields{
		"server_name":    s.config.ServerName,
		"server_version": s.config.ServerVersion,
		"transport_type": transport,
	}).Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}
