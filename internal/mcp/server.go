// Package mcpserver exposes template editing to AI agents over MCP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/service"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// RevisionLister reads saved revisions of a template.
type RevisionLister interface {
	List(ctx context.Context, templateID string) ([]domain.Revision, error)
}

// Server is the MCP server for the email builder.
// It exposes tools, resources, and prompts so AI agents can build templates.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	logger   *zap.Logger

	templates *service.TemplateService
	revisions RevisionLister
	pickers   map[domain.PickKind]domain.Picker

	// Active template context (set by open_template / create_template)
	mu               sync.Mutex
	activeTemplateID string
}

// Deps holds all dependencies passed from the command layer to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Logger    *zap.Logger
	Templates *service.TemplateService
	Revisions RevisionLister
	Pickers   map[domain.PickKind]domain.Picker
	Approval  *ApprovalQueue // nil creates an in-process queue
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = nopEmitter{}
	}
	approval := deps.Approval
	if approval == nil {
		approval = NewApprovalQueue(ctx, emitter, logger)
	}
	s := &Server{
		emitter:   emitter,
		approval:  approval,
		logger:    logger,
		templates: deps.Templates,
		revisions: deps.Revisions,
		pickers:   deps.Pickers,
	}

	s.mcp = server.NewMCPServer(
		"emailbuilder-mcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTemplateTools()
	s.registerBlockTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, e.g. for tests.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// emitTreeChanged notifies the host that a template's tree has changed.
func (s *Server) emitTreeChanged(ctx context.Context, templateID string) {
	s.emitter.Emit(ctx, "mcp:tree-changed", map[string]string{"templateId": templateID})
}

func (s *Server) setActive(id string) {
	s.mu.Lock()
	s.activeTemplateID = id
	s.mu.Unlock()
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolveTemplateID returns the templateId from tool args or falls back to
// the active template.
func (s *Server) resolveTemplateID(args map[string]any) (string, error) {
	if id, ok := args["templateId"].(string); ok && id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeTemplateID != "" {
		return s.activeTemplateID, nil
	}
	return "", fmt.Errorf("no templateId provided and no active template (use open_template first)")
}

// sessionForTool opens the session named by the tool arguments.
func (s *Server) sessionForTool(ctx context.Context, args map[string]any) (*service.Session, error) {
	id, err := s.resolveTemplateID(args)
	if err != nil {
		return nil, err
	}
	return s.templates.Open(ctx, id)
}

// requireString reads a required string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
