package editor

import "emailbuilder/internal/domain"

// History is a linear undo stack of full-tree snapshots with a cursor.
// Entries are never modified after they are pushed; the live tree is
// always a separate copy.
type History struct {
	entries [][]*domain.Block
	index   int
	limit   int
}

func newHistory(initial []*domain.Block, limit int) *History {
	return &History{
		entries: [][]*domain.Block{domain.CloneTree(initial)},
		limit:   limit,
	}
}

// push discards every entry after the cursor and appends tree.
func (h *History) push(tree []*domain.Block) {
	h.entries = append(h.entries[:h.index+1], domain.CloneTree(tree))
	h.index++
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([][]*domain.Block(nil), h.entries[drop:]...)
		h.index -= drop
	}
}

func (h *History) undo() ([]*domain.Block, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return domain.CloneTree(h.entries[h.index]), true
}

func (h *History) redo() ([]*domain.Block, bool) {
	if h.index >= len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return domain.CloneTree(h.entries[h.index]), true
}

func (h *History) current() []*domain.Block {
	return h.entries[h.index]
}

// Len is the number of snapshots held.
func (h *History) Len() int { return len(h.entries) }

// Index is the cursor position, always within [0, Len).
func (h *History) Index() int { return h.index }

func (h *History) canUndo() bool { return h.index > 0 }
func (h *History) canRedo() bool { return h.index < len(h.entries)-1 }
