package editor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/registry"
)

var (
	ErrUnknownType     = errors.New("unknown block type")
	ErrBlockNotFound   = errors.New("block not found")
	ErrMaxPerDocument  = errors.New("block type limit reached")
	ErrNotContainer    = errors.New("target block is not a container")
	ErrChildNotAllowed = errors.New("block type not allowed in this container")
	ErrCrossContainer  = errors.New("blocks can only be reordered within their container")
	ErrDeleteDeclined  = errors.New("delete not confirmed")
)

// DefaultImportantTypes need confirmation before they are deleted.
var DefaultImportantTypes = []string{registry.TypeProduct, registry.TypeProductGrid, registry.TypeCollection}

// ConfirmFunc asks the host whether an important block may be deleted.
type ConfirmFunc func(b *domain.Block) bool

// Direction of a Move.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// LayoutPatch is shallow-merged into a block's layout; nil fields are kept.
type LayoutPatch struct {
	Padding    *domain.Padding `json:"padding,omitempty"`
	Align      *string         `json:"align,omitempty"`
	Background *string         `json:"background,omitempty"`
}

// Engine owns the live block tree of one editing session together with
// its undo history and the selection/hover state. It is not safe for
// concurrent use; callers serialize access the way a UI event loop does.
type Engine struct {
	reg     *registry.Registry
	blocks  []*domain.Block
	history *History
	pending bool // content edited since the last snapshot

	selectedID string
	hoveredID  string

	confirm   ConfirmFunc
	important map[string]bool
	newID     func() string
	limit     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfirm installs the delete-confirmation hook. Without one, deletes
// of important blocks proceed.
func WithConfirm(fn ConfirmFunc) Option {
	return func(e *Engine) { e.confirm = fn }
}

// WithImportantTypes replaces the set of types whose delete needs confirmation.
func WithImportantTypes(types ...string) Option {
	return func(e *Engine) {
		e.important = make(map[string]bool, len(types))
		for _, t := range types {
			e.important[t] = true
		}
	}
}

// WithHistoryLimit caps the number of snapshots kept; 0 keeps all.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.limit = n }
}

// WithIDGenerator overrides block ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine over an empty document.
func New(reg *registry.Registry, opts ...Option) *Engine {
	return Load(reg, nil, opts...)
}

// Load creates an engine over an existing tree; the tree becomes the
// first history entry.
func Load(reg *registry.Registry, blocks []*domain.Block, opts ...Option) *Engine {
	e := &Engine{
		reg:   reg,
		newID: uuid.NewString,
	}
	WithImportantTypes(DefaultImportantTypes...)(e)
	for _, opt := range opts {
		opt(e)
	}
	e.blocks = domain.CloneTree(blocks)
	e.history = newHistory(e.blocks, e.limit)
	return e
}

// Blocks returns a copy of the live tree.
func (e *Engine) Blocks() []*domain.Block {
	return domain.CloneTree(e.blocks)
}

// Block returns a copy of one block.
func (e *Engine) Block(id string) (*domain.Block, bool) {
	b := domain.Find(e.blocks, id)
	if b == nil {
		return nil, false
	}
	return b.Clone(), true
}

// Len is the number of top-level blocks.
func (e *Engine) Len() int { return len(e.blocks) }

// History exposes the snapshot stack for inspection.
func (e *Engine) History() *History { return e.history }

// Registry returns the block type catalog the engine validates against.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Dirty reports uncommitted content edits.
func (e *Engine) Dirty() bool { return e.pending }

// mutate applies fn to a working copy of the tree. The live tree and the
// history only change when fn succeeds.
func (e *Engine) mutate(fn func(tree *[]*domain.Block) error) error {
	e.Commit()
	work := domain.CloneTree(e.blocks)
	if err := fn(&work); err != nil {
		return err
	}
	e.blocks = work
	e.history.push(e.blocks)
	return nil
}

// placement is where Insert puts a new block.
type placement struct {
	index    int
	parentID string
}

// PlaceOption positions an inserted block.
type PlaceOption func(*placement)

// AtIndex inserts at i within the target sibling list; out-of-range appends.
func AtIndex(i int) PlaceOption {
	return func(p *placement) { p.index = i }
}

// InParent targets the children of a container block.
func InParent(id string) PlaceOption {
	return func(p *placement) { p.parentID = id }
}

// Insert adds a new block of typeID seeded with the type's default content.
// Rejected inserts leave the tree and history untouched.
func (e *Engine) Insert(typeID string, opts ...PlaceOption) (*domain.Block, error) {
	p := placement{index: -1}
	for _, opt := range opts {
		opt(&p)
	}
	bt, ok := e.reg.Get(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeID)
	}
	if err := e.checkCap(bt, 1); err != nil {
		return nil, err
	}
	if p.parentID != "" {
		parent := domain.Find(e.blocks, p.parentID)
		if parent == nil {
			return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, p.parentID)
		}
		if err := e.checkChild(parent, typeID); err != nil {
			return nil, err
		}
	}

	b := &domain.Block{
		ID:      e.newID(),
		Type:    typeID,
		Content: bt.DefaultContent(),
		Layout:  bt.DefaultLayout,
	}
	if bt.Container {
		b.Children = []*domain.Block{}
	}

	err := e.mutate(func(tree *[]*domain.Block) error {
		if p.parentID == "" {
			*tree = insertAt(*tree, p.index, b)
			return nil
		}
		parent := domain.Find(*tree, p.parentID)
		parent.Children = insertAt(parent.Children, p.index, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

func (e *Engine) checkCap(bt *registry.BlockType, adding int) error {
	if bt.MaxPerDocument > 0 && domain.CountType(e.blocks, bt.ID)+adding > bt.MaxPerDocument {
		return fmt.Errorf("%w: %s allows %d per document", ErrMaxPerDocument, bt.ID, bt.MaxPerDocument)
	}
	return nil
}

func (e *Engine) checkChild(parent *domain.Block, childType string) error {
	pt, ok := e.reg.Get(parent.Type)
	if !ok || !pt.Container {
		return fmt.Errorf("%w: %s", ErrNotContainer, parent.Type)
	}
	if !pt.Allows(childType) {
		return fmt.Errorf("%w: %s in %s", ErrChildNotAllowed, childType, parent.Type)
	}
	return nil
}

// UpdateContent replaces a block's content wholesale. The edit is not
// recorded in history until Commit; keystroke batching is up to the caller.
func (e *Engine) UpdateContent(id string, c domain.Content) error {
	s, ok := locate(&e.blocks, nil, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	old := s.block()
	(*s.list)[s.index] = &domain.Block{
		ID:       old.ID,
		Type:     old.Type,
		Content:  c.Clone(),
		Layout:   old.Layout,
		Children: old.Children,
	}
	e.pending = true
	return nil
}

// Commit records pending content edits as a history entry. It reports
// whether a snapshot was taken.
func (e *Engine) Commit() bool {
	if !e.pending {
		return false
	}
	e.pending = false
	e.history.push(e.blocks)
	return true
}

// UpdateLayout shallow-merges patch into the block's layout.
func (e *Engine) UpdateLayout(id string, patch LayoutPatch) error {
	if domain.Find(e.blocks, id) == nil {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return e.mutate(func(tree *[]*domain.Block) error {
		b := domain.Find(*tree, id)
		if patch.Padding != nil {
			b.Layout.Padding = *patch.Padding
		}
		if patch.Align != nil {
			b.Layout.Align = *patch.Align
		}
		if patch.Background != nil {
			b.Layout.Background = *patch.Background
		}
		return nil
	})
}

// IsImportant reports whether deleting blocks of typeID needs confirmation.
func (e *Engine) IsImportant(typeID string) bool {
	return e.important[typeID]
}

// Delete removes a block and its subtree. Important types go through the
// confirmation hook first; a declined confirmation changes nothing.
func (e *Engine) Delete(id string) error {
	b := domain.Find(e.blocks, id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if !e.ConfirmDelete(b) {
		return ErrDeleteDeclined
	}
	return e.DeleteConfirmed(id)
}

// ConfirmDelete asks the confirmation hook about deleting b. It reports true
// for types that are not important or when no hook is installed. It reads
// no tree state and may run without the caller's edit lock.
func (e *Engine) ConfirmDelete(b *domain.Block) bool {
	if !e.important[b.Type] || e.confirm == nil {
		return true
	}
	return e.confirm(b.Clone())
}

// DeleteConfirmed removes a block and its subtree without consulting the
// confirmation hook.
func (e *Engine) DeleteConfirmed(id string) error {
	b := domain.Find(e.blocks, id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	err := e.mutate(func(tree *[]*domain.Block) error {
		s, ok := locate(tree, nil, id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		*s.list = removeAt(*s.list, s.index)
		return nil
	})
	if err != nil {
		return err
	}
	if contains(b, e.selectedID) {
		e.selectedID = ""
	}
	if contains(b, e.hoveredID) {
		e.hoveredID = ""
	}
	return nil
}

// Duplicate deep-copies a block with fresh IDs throughout and places the
// copy directly after the original.
func (e *Engine) Duplicate(id string) (*domain.Block, error) {
	orig := domain.Find(e.blocks, id)
	if orig == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	clone := orig.Clone()
	counts := map[string]int{}
	domain.Walk([]*domain.Block{clone}, func(b *domain.Block, _ *domain.Block) bool {
		counts[b.Type]++
		return true
	})
	for typeID, n := range counts {
		if bt, ok := e.reg.Get(typeID); ok {
			if err := e.checkCap(bt, n); err != nil {
				return nil, err
			}
		}
	}
	reassignIDs(clone, e.newID)

	err := e.mutate(func(tree *[]*domain.Block) error {
		s, ok := locate(tree, nil, id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		*s.list = insertAt(*s.list, s.index+1, clone)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone.Clone(), nil
}

// Move swaps a block with its neighbour. Moving past either end is a no-op.
func (e *Engine) Move(id string, dir Direction) error {
	s, ok := locate(&e.blocks, nil, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	target := s.index - 1
	if dir == Down {
		target = s.index + 1
	}
	if target < 0 || target >= len(*s.list) {
		return nil
	}
	return e.mutate(func(tree *[]*domain.Block) error {
		ws, _ := locate(tree, nil, id)
		list := *ws.list
		list[ws.index], list[target] = list[target], list[ws.index]
		return nil
	})
}

// DragSource is what is being dragged: a palette type or an existing block.
type DragSource struct {
	TypeID  string
	BlockID string
}

// FromPalette is a drag that starts at the block palette.
func FromPalette(typeID string) DragSource { return DragSource{TypeID: typeID} }

// FromBlock is a drag of an existing block.
func FromBlock(id string) DragSource { return DragSource{BlockID: id} }

// DropTarget is where a drop lands: Index within the sibling list of
// ParentID (top level when empty). For an existing block the index applies
// after the block has been removed from that list.
type DropTarget struct {
	ParentID string
	Index    int
}

// ReorderByDrop performs a drop. Palette sources insert a new block;
// existing blocks are moved within their own container, keeping identity
// and content.
func (e *Engine) ReorderByDrop(src DragSource, target DropTarget) (*domain.Block, error) {
	if src.BlockID == "" {
		opts := []PlaceOption{AtIndex(target.Index)}
		if target.ParentID != "" {
			opts = append(opts, InParent(target.ParentID))
		}
		return e.Insert(src.TypeID, opts...)
	}

	s, ok := locate(&e.blocks, nil, src.BlockID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, src.BlockID)
	}
	parentID := ""
	if s.parent != nil {
		parentID = s.parent.ID
	}
	if parentID != target.ParentID {
		return nil, ErrCrossContainer
	}

	to := target.Index
	if last := len(*s.list) - 1; to < 0 || to > last {
		to = last
	}
	moved := s.block().Clone()
	if to == s.index {
		return moved, nil
	}
	err := e.mutate(func(tree *[]*domain.Block) error {
		ws, _ := locate(tree, nil, src.BlockID)
		b := ws.block()
		list := removeAt(*ws.list, ws.index)
		*ws.list = insertAt(list, to, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Undo steps back one snapshot. Pending content edits are committed
// first, so they are what gets undone.
func (e *Engine) Undo() bool {
	e.Commit()
	tree, ok := e.history.undo()
	if !ok {
		return false
	}
	e.restore(tree)
	return true
}

// Redo steps forward one snapshot.
func (e *Engine) Redo() bool {
	if e.pending {
		// A fresh edit discards the redo branch.
		e.Commit()
		return false
	}
	tree, ok := e.history.redo()
	if !ok {
		return false
	}
	e.restore(tree)
	return true
}

// CanUndo reports whether Undo would change the tree.
func (e *Engine) CanUndo() bool { return e.pending || e.history.canUndo() }

// CanRedo reports whether Redo would change the tree.
func (e *Engine) CanRedo() bool { return !e.pending && e.history.canRedo() }

func (e *Engine) restore(tree []*domain.Block) {
	e.blocks = tree
	if e.selectedID != "" && domain.Find(e.blocks, e.selectedID) == nil {
		e.selectedID = ""
	}
	if e.hoveredID != "" && domain.Find(e.blocks, e.hoveredID) == nil {
		e.hoveredID = ""
	}
}

// Reset drops the tree, history and selection, as after a raw-HTML save.
func (e *Engine) Reset() {
	e.blocks = nil
	e.pending = false
	e.history = newHistory(nil, e.limit)
	e.selectedID = ""
	e.hoveredID = ""
}

// Select marks a block as selected, committing pending content edits of
// the previous selection. Selection is never part of history.
func (e *Engine) Select(id string) error {
	if domain.Find(e.blocks, id) == nil {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if id != e.selectedID {
		e.Commit()
	}
	e.selectedID = id
	return nil
}

// ClearSelection unselects, committing pending edits.
func (e *Engine) ClearSelection() {
	e.Commit()
	e.selectedID = ""
}

// Selected returns the selected block ID, or "".
func (e *Engine) Selected() string { return e.selectedID }

// Hover records the block under the pointer; "" clears it.
func (e *Engine) Hover(id string) {
	if id != "" && domain.Find(e.blocks, id) == nil {
		return
	}
	e.hoveredID = id
}

// Hovered returns the hovered block ID, or "".
func (e *Engine) Hovered() string { return e.hoveredID }

// Counts returns the number of instances per type, useful for disabling
// palette entries whose cap is reached.
func (e *Engine) Counts() map[string]int {
	counts := map[string]int{}
	domain.Walk(e.blocks, func(b *domain.Block, _ *domain.Block) bool {
		counts[b.Type]++
		return true
	})
	return counts
}

// CanInsert reports whether Insert(typeID) at the top level would be accepted.
func (e *Engine) CanInsert(typeID string) bool {
	bt, ok := e.reg.Get(typeID)
	return ok && e.checkCap(bt, 1) == nil
}

// Lint validates every block's content against its type's schema. Blocks
// of unknown types are reported too; the renderer still handles them.
func (e *Engine) Lint() map[string]error {
	problems := map[string]error{}
	domain.Walk(e.blocks, func(b *domain.Block, _ *domain.Block) bool {
		if err := e.reg.Validate(b.Type, b.Content); err != nil {
			problems[b.ID] = err
		}
		return true
	})
	return problems
}

// ImportantTypes lists the types whose delete needs confirmation.
func (e *Engine) ImportantTypes() []string {
	out := make([]string, 0, len(e.important))
	for t := range e.important {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
