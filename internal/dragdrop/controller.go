// Package dragdrop turns pointer interaction on the canvas into editor
// operations. It holds only transient drag state.
package dragdrop

import (
	"errors"

	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
)

// ErrNoDrag is returned by Drop when no drag is in progress.
var ErrNoDrag = errors.New("no drag in progress")

// Editor is the part of the engine the controller drives.
type Editor interface {
	ReorderByDrop(src editor.DragSource, target editor.DropTarget) (*domain.Block, error)
	Select(id string) error
	ClearSelection()
	Hover(id string)
}

// Controller maps drag, click and hover events to the editor.
type Controller struct {
	ed     Editor
	logger *zap.Logger

	source *editor.DragSource
	over   *editor.DropTarget
}

// New creates a controller over ed.
func New(ed Editor, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{ed: ed, logger: logger}
}

// DragStartPalette begins dragging a new block of typeID out of the palette.
func (c *Controller) DragStartPalette(typeID string) {
	src := editor.FromPalette(typeID)
	c.source = &src
	c.over = nil
}

// DragStartBlock begins dragging an existing block.
func (c *Controller) DragStartBlock(id string) {
	src := editor.FromBlock(id)
	c.source = &src
	c.over = nil
}

// DragOver records the drop slot under the pointer.
func (c *Controller) DragOver(target editor.DropTarget) {
	if c.source == nil {
		return
	}
	t := target
	c.over = &t
}

// DragLeave clears the highlighted drop slot.
func (c *Controller) DragLeave() {
	c.over = nil
}

// Drop completes the drag at target. The drag state is cleared whether
// or not the editor accepts the drop.
func (c *Controller) Drop(target editor.DropTarget) (*domain.Block, error) {
	src := c.source
	c.reset()
	if src == nil {
		return nil, ErrNoDrag
	}
	b, err := c.ed.ReorderByDrop(*src, target)
	if err != nil {
		c.logger.Debug("drop rejected",
			zap.String("type", src.TypeID),
			zap.String("block", src.BlockID),
			zap.String("parent", target.ParentID),
			zap.Int("index", target.Index),
			zap.Error(err))
		return nil, err
	}
	return b, nil
}

// DragEnd cancels any drag in progress.
func (c *Controller) DragEnd() {
	c.reset()
}

func (c *Controller) reset() {
	c.source = nil
	c.over = nil
}

// Dragging returns the current drag source.
func (c *Controller) Dragging() (editor.DragSource, bool) {
	if c.source == nil {
		return editor.DragSource{}, false
	}
	return *c.source, true
}

// DropIndicator returns the slot currently under the pointer.
func (c *Controller) DropIndicator() (editor.DropTarget, bool) {
	if c.over == nil {
		return editor.DropTarget{}, false
	}
	return *c.over, true
}

// Click selects a block; an empty id is a click on the canvas background.
func (c *Controller) Click(id string) error {
	if id == "" {
		c.ed.ClearSelection()
		return nil
	}
	return c.ed.Select(id)
}

// HoverEnter marks id as hovered.
func (c *Controller) HoverEnter(id string) {
	c.ed.Hover(id)
}

// HoverLeave clears the hover.
func (c *Controller) HoverLeave() {
	c.ed.Hover("")
}
