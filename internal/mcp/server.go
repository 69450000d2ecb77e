// Package mcp exposes the consultation service as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/service"
)

// Server represents the consultation assistant MCP server
type Server struct {
	config        domain.ConfigManager
	mcpServer     *mcp.Server
	consultations *service.ConsultationService
	directory     domain.PatientDirectory
	logger        *logrus.Logger
	tools         []string
}

// NewServer creates a new MCP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, consultations *service.ConsultationService, directory domain.PatientDirectory) (*Server, error) {
	if consultations == nil {
		return nil, fmt.Errorf("consultation service is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("patient directory is required")
	}

	cfg := configManager.GetConfig()

	serverInfo := &mcp.Implementation{
		Name:    cfg.MCP.ServerName,
		Version: cfg.MCP.ServerVersion,
	}

	server := &Server{
		config:        configManager,
		mcpServer:     mcp.NewServer(serverInfo, nil),
		consultations: consultations,
		directory:     directory,
		logger:        logger,
	}

	server.registerTools()

	return server, nil
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("tool_count", len(s.tools)).Info("Starting consultation MCP server on stdio")
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Tools returns the names of the registered tools in registration order.
func (s *Server) Tools() []string {
	return append([]string{}, s.tools...)
}

// registerTools registers every consultation tool with the MCP SDK.
func (s *Server) registerTools() {
	addTool(s, "list_patients",
		"List the patient roster with conditions and risk level.",
		s.handleListPatients)
	addTool(s, "start_consultation",
		"Start a consultation for a patient from the roster and return its consultation_id.",
		s.handleStartConsultation)
	addTool(s, "submit_turn",
		"Append one transcript turn (speaker Doctor or Patient) and return the updated topics and ranked suggestions.",
		s.handleSubmitTurn)
	addTool(s, "get_consultation",
		"Return the transcript, discussed topics and live suggestions of a consultation.",
		s.handleGetConsultation)
	addTool(s, "select_suggestion",
		"Return the question of a suggestion to use as the doctor's next turn.",
		s.handleSelectSuggestion)
	addTool(s, "end_consultation",
		"Summarize a consultation: discussed topics, missed critical areas, findings, actions and pathways.",
		s.handleEndConsultation)
	addTool(s, "discard_consultation",
		"Drop an ended consultation and free its session. Its id stops working afterwards.",
		s.handleDiscardConsultation)
	addTool(s, "list_rules",
		"List the suggestion rules keyed by patient condition.",
		s.handleListRules)

	s.logger.WithField("tool_count", len(s.tools)).Info("Registered MCP tools")
}

func addTool[In any](s *Server, name, description string, handler mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: name, Description: description}, handler)
	s.tools = append(s.tools, name)
	s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
}
