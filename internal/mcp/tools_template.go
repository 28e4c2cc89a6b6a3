package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"emailbuilder/internal/registry"
)

func (s *Server) registerTemplateTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block types that can be inserted, optionally filtered by category"),
		mcp.WithString("category",
			mcp.Description("Category: content, media, actions, layout, social, footer, navigation (optional)"),
		),
	), s.handleListBlockTypes)

	// ── get_block_schema ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block_schema",
		mcp.WithDescription("Get the JSON Schema a block type's content must satisfy"),
		mcp.WithString("type", mcp.Description("Block type id"), mcp.Required()),
	), s.handleGetBlockSchema)

	// ── list_templates ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List saved email templates"),
	), s.handleListTemplates)

	// ── create_template ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_template",
		mcp.WithDescription("Create an empty template and make it the active template"),
		mcp.WithString("name", mcp.Description("Template name"), mcp.Required()),
	), s.handleCreateTemplate)

	// ── open_template ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_template",
		mcp.WithDescription("Open a template for editing and make it active. Tools that accept templateId default to it."),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
	), s.handleOpenTemplate)

	// ── delete_template (destructive) ──────────────────
	s.mcp.AddTool(mcp.NewTool("delete_template",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a saved template and its revisions. Requires user approval."),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteTemplate)

	// ── render_template ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_template",
		mcp.WithDescription("Render the current block tree to send-time HTML"),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleRenderTemplate)

	// ── save_template ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_template",
		mcp.WithDescription("Render and save the template together with its block tree"),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleSaveTemplate)

	// ── save_raw_html (destructive) ────────────────────
	s.mcp.AddTool(mcp.NewTool("save_raw_html",
		mcp.WithDescription("🛑 DESTRUCTIVE: Save hand-written HTML. The block tree is discarded and cannot be recovered for editing. Requires user approval."),
		mcp.WithString("html", mcp.Description("Complete HTML document"), mcp.Required()),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleSaveRawHTML)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List saved revisions of a template, newest first"),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleListRevisions)
}

type blockTypeInfo struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Category          registry.Category `json:"category"`
	MaxPerDocument    int               `json:"maxPerDocument,omitempty"`
	Container         bool              `json:"container,omitempty"`
	AllowedChildTypes []string          `json:"allowedChildTypes,omitempty"`
	PickKind          string            `json:"pickKind,omitempty"`
	Fields            []registry.Field  `json:"fields"`
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.templates.Registry()
	types := reg.Types()
	if cat := req.GetString("category", ""); cat != "" {
		types = reg.ListByCategory(registry.Category(cat))
	}

	out := make([]blockTypeInfo, 0, len(types))
	for _, t := range types {
		out = append(out, blockTypeInfo{
			ID:                t.ID,
			Name:              t.Name,
			Category:          t.Category,
			MaxPerDocument:    t.MaxPerDocument,
			Container:         t.Container,
			AllowedChildTypes: t.AllowedChildTypes,
			PickKind:          string(t.PickKind),
			Fields:            t.Fields,
		})
	}
	return jsonResult(out)
}

func (s *Server) handleGetBlockSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeID := req.GetString("type", "")
	t, ok := s.templates.Registry().Get(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrUnknownType, typeID)
	}
	return jsonResult(t.JSONSchema())
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	type templateSummary struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		UpdatedAt string `json:"updatedAt"`
	}
	out := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateSummary{ID: t.ID, Name: t.Name, UpdatedAt: t.UpdatedAt.Format(time.RFC3339)})
	}
	return jsonResult(out)
}

func (s *Server) handleCreateTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	sess, err := s.templates.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	// Auto-set as active template
	s.setActive(sess.ID())
	return jsonResult(map[string]string{"id": sess.ID(), "name": sess.Name()})
}

func (s *Server) handleOpenTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "templateId")
	if err != nil {
		return nil, err
	}
	sess, err := s.templates.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setActive(sess.ID())
	return jsonResult(map[string]any{
		"id":     sess.ID(),
		"name":   sess.Name(),
		"blocks": summarizeTree(sess.Blocks()),
	})
}

func (s *Server) handleDeleteTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "templateId")
	if err != nil {
		return nil, err
	}

	approved, err := s.approval.Request("delete_template",
		fmt.Sprintf("Delete template %s and all of its revisions", id),
		fmt.Sprintf(`{"templateId":%q}`, id),
	)
	if err != nil || !approved {
		return textResult(fmt.Sprintf("Delete of template %s cancelled by user", id)), nil
	}

	if err := s.templates.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.activeTemplateID == id {
		s.activeTemplateID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Template %s deleted", id)), nil
}

func (s *Server) handleRenderTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return textResult(sess.Render()), nil
}

func (s *Server) handleSaveTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := sess.Save(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Template %s saved (%d top-level blocks)", sess.ID(), len(sess.Blocks()))), nil
}

func (s *Server) handleSaveRawHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	html, err := requireString(args, "html")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	approved, err := s.approval.Request("save_raw_html",
		fmt.Sprintf("Replace template %s with hand-written HTML; its blocks will be discarded", sess.ID()),
		fmt.Sprintf(`{"templateId":%q}`, sess.ID()),
	)
	if err != nil || !approved {
		return textResult("Raw HTML save cancelled by user"), nil
	}

	if err := sess.SaveRawHTML(ctx, html); err != nil {
		return nil, err
	}
	s.emitTreeChanged(ctx, sess.ID())
	return textResult(fmt.Sprintf("Template %s saved as raw HTML; block tree cleared", sess.ID())), nil
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.revisions == nil {
		return nil, fmt.Errorf("revisions are not available")
	}
	id, err := s.resolveTemplateID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revs, err := s.revisions.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	type revisionSummary struct {
		ID        string `json:"id"`
		CreatedAt string `json:"createdAt"`
		Bytes     int    `json:"bytes"`
	}
	out := make([]revisionSummary, 0, len(revs))
	for _, r := range revs {
		out = append(out, revisionSummary{ID: r.ID, CreatedAt: r.CreatedAt.Format(time.RFC3339), Bytes: len(r.HTML)})
	}
	return jsonResult(out)
}
