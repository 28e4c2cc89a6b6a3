package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
)

func (s *Server) registerHistoryTools() {
	// ── undo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the block tree"),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleUndo)

	// ── redo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleRedo)
}

type historyState struct {
	Changed bool   `json:"changed"`
	CanUndo bool   `json:"canUndo"`
	CanRedo bool   `json:"canRedo"`
	Outline string `json:"outline"`
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, req, (*editor.Engine).Undo)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, req, (*editor.Engine).Redo)
}

// step runs undo or redo; at either end of history it reports no change.
func (s *Server) step(ctx context.Context, req mcp.CallToolRequest, fn func(*editor.Engine) bool) (*mcp.CallToolResult, error) {
	sess, err := s.sessionForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}

	var st historyState
	_ = sess.Do(func(e *editor.Engine) error {
		st.Changed = fn(e)
		st.CanUndo = e.CanUndo()
		st.CanRedo = e.CanRedo()
		st.Outline = domain.Outline(e.Blocks())
		return nil
	})
	if st.Changed {
		s.emitTreeChanged(ctx, sess.ID())
	}
	return jsonResult(st)
}
