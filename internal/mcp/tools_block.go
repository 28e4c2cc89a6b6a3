package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
)

func (s *Server) registerBlockTools() {
	// ── get_tree ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the block tree of a template. Set full=true for complete content and layout."),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
		mcp.WithBoolean("full", mcp.Description("Return full blocks instead of summaries (default false)")),
	), s.handleGetTree)

	// ── insert_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert a new block seeded with its type's default content. Appends when index is omitted."),
		mcp.WithString("type", mcp.Description("Block type id (see list_block_types)"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Position among the siblings (optional)")),
		mcp.WithString("parentId", mcp.Description("Container block to insert into (optional)")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleInsertBlock)

	// ── update_block_content ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_content",
		mcp.WithDescription("Update a block's content. Fields are merged into the current content unless replace=true; the result must satisfy the type's schema."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("JSON object of content fields"), mcp.Required()),
		mcp.WithBoolean("replace", mcp.Description("Replace the whole content instead of merging (default false)")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleUpdateBlockContent)

	// ── update_block_layout ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_layout",
		mcp.WithDescription("Change a block's padding, alignment or background. Omitted properties are kept."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("padding", mcp.Description(`JSON object {"top":0,"right":0,"bottom":0,"left":0} (optional)`)),
		mcp.WithString("align", mcp.Description("left, center or right (optional)")),
		mcp.WithString("background", mcp.Description("CSS colour (optional)")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleUpdateBlockLayout)

	// ── delete_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block and its children. Product, product grid and collection blocks require user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── duplicate_block ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Copy a block (with children) directly after itself"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleDuplicateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Swap a block with its previous or next sibling"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("up or down"), mcp.Required(), mcp.Enum("up", "down")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleMoveBlock)

	// ── reorder_block ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_block",
		mcp.WithDescription("Move a block to a new index within its own container. The block is removed first, then inserted at index; out-of-range appends."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target index"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Container of the block (empty for top level)")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handleReorderBlock)

	// ── pick_record ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("pick_record",
		mcp.WithDescription("Fill a product, collection, discount or image block from the store catalog. Use refs for product grids."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("ref", mcp.Description("Record id, code or handle")),
		mcp.WithString("refs", mcp.Description("Comma-separated record ids (product grid)")),
		mcp.WithString("templateId", mcp.Description("Template ID (optional, defaults to active template)")),
	), s.handlePickRecord)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	blocks := sess.Blocks()
	if req.GetBool("full", false) {
		if blocks == nil {
			blocks = []*domain.Block{}
		}
		return jsonResult(blocks)
	}
	return jsonResult(map[string]any{
		"templateId": sess.ID(),
		"outline":    domain.Outline(blocks),
		"blocks":     summarizeTree(blocks),
	})
}

func (s *Server) handleInsertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	typeID, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	var opts []editor.PlaceOption
	if idx, ok := args["index"].(float64); ok {
		opts = append(opts, editor.AtIndex(int(idx)))
	}
	if parentID, _ := args["parentId"].(string); parentID != "" {
		opts = append(opts, editor.InParent(parentID))
	}

	block, err := sess.Insert(ctx, typeID, opts...)
	if err != nil {
		return nil, fmt.Errorf("insert block: %w", err)
	}
	s.emitTreeChanged(ctx, sess.ID())
	return jsonResult(block)
}

func (s *Server) handleUpdateBlockContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	raw, err := requireString(args, "content")
	if err != nil {
		return nil, err
	}
	var patch domain.Content
	if err := parseJSON(raw, &patch); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	replace := req.GetBool("replace", false)

	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	var updated *domain.Block
	err = sess.Do(func(e *editor.Engine) error {
		b, ok := e.Block(blockID)
		if !ok {
			return fmt.Errorf("%w: %s", editor.ErrBlockNotFound, blockID)
		}
		next := patch
		if !replace {
			next = b.Content.Clone()
			if next == nil {
				next = domain.Content{}
			}
			for k, v := range patch {
				next[k] = v
			}
		}
		if err := e.Registry().Validate(b.Type, next); err != nil {
			return err
		}
		e.Commit()
		if err := e.UpdateContent(blockID, next); err != nil {
			return err
		}
		e.Commit()
		updated, _ = e.Block(blockID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return jsonResult(updated)
}

func (s *Server) handleUpdateBlockLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}

	var patch editor.LayoutPatch
	if raw, _ := args["padding"].(string); raw != "" {
		var p domain.Padding
		if err := parseJSON(raw, &p); err != nil {
			return nil, fmt.Errorf("parse padding: %w", err)
		}
		patch.Padding = &p
	}
	if v, ok := args["align"].(string); ok {
		switch v {
		case "left", "center", "right":
			patch.Align = &v
		default:
			return nil, fmt.Errorf("align must be left, center or right")
		}
	}
	if v, ok := args["background"].(string); ok {
		patch.Background = &v
	}

	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := sess.Do(func(e *editor.Engine) error { return e.UpdateLayout(blockID, patch) }); err != nil {
		return nil, fmt.Errorf("update layout: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return textResult(fmt.Sprintf("Block %s layout updated", blockID)), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	// Important types wait here until the approval queue answers.
	err = sess.Delete(blockID)
	if errors.Is(err, editor.ErrDeleteDeclined) {
		return textResult(fmt.Sprintf("Delete of block %s cancelled", blockID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete block: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return textResult(fmt.Sprintf("Block %s deleted", blockID)), nil
}

func (s *Server) handleDuplicateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	var clone *domain.Block
	err = sess.Do(func(e *editor.Engine) error {
		var err error
		clone, err = e.Duplicate(blockID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate block: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return jsonResult(clone)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	var dir editor.Direction
	switch req.GetString("direction", "") {
	case "up":
		dir = editor.Up
	case "down":
		dir = editor.Down
	default:
		return nil, fmt.Errorf("direction must be up or down")
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	if err := sess.Do(func(e *editor.Engine) error { return e.Move(blockID, dir) }); err != nil {
		return nil, fmt.Errorf("move block: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return textResult(fmt.Sprintf("Block %s moved %s", blockID, dir)), nil
}

func (s *Server) handleReorderBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	idx, ok := args["index"].(float64)
	if !ok {
		return nil, fmt.Errorf("index is required")
	}
	parentID, _ := args["parentId"].(string)
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	target := editor.DropTarget{ParentID: parentID, Index: int(idx)}
	err = sess.Do(func(e *editor.Engine) error {
		_, err := e.ReorderByDrop(editor.FromBlock(blockID), target)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reorder block: %w", err)
	}

	s.emitTreeChanged(ctx, sess.ID())
	return textResult(fmt.Sprintf("Block %s moved to index %d", blockID, target.Index)), nil
}

func (s *Server) handlePickRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	ref, _ := args["ref"].(string)
	refs := splitIDs(req.GetString("refs", ""))
	if ref == "" && len(refs) == 0 {
		return nil, fmt.Errorf("ref or refs is required")
	}
	sess, err := s.sessionForTool(ctx, args)
	if err != nil {
		return nil, err
	}

	var typeID string
	err = sess.Do(func(e *editor.Engine) error {
		b, ok := e.Block(blockID)
		if !ok {
			return fmt.Errorf("%w: %s", editor.ErrBlockNotFound, blockID)
		}
		typeID = b.Type
		return nil
	})
	if err != nil {
		return nil, err
	}
	bt, ok := s.templates.Registry().Get(typeID)
	if !ok || bt.PickKind == "" {
		return nil, fmt.Errorf("block type %s cannot be picked", typeID)
	}
	picker := s.pickers[bt.PickKind]
	if picker == nil {
		return nil, fmt.Errorf("no %s catalog configured", bt.PickKind)
	}

	if len(refs) > 0 {
		err = sess.ApplyPicks(ctx, blockID, picker, refs)
	} else {
		err = sess.ApplyPick(ctx, blockID, picker, ref)
	}
	if err != nil {
		return nil, err
	}

	s.emitTreeChanged(ctx, sess.ID())
	updated := domain.Find(sess.Blocks(), blockID)
	return jsonResult(updated)
}
