package editor

import "emailbuilder/internal/domain"

// slot addresses a block inside its sibling list.
type slot struct {
	list   *[]*domain.Block
	index  int
	parent *domain.Block // nil at top level
}

func (s slot) block() *domain.Block { return (*s.list)[s.index] }

// locate finds the sibling list and index holding id.
func locate(list *[]*domain.Block, parent *domain.Block, id string) (slot, bool) {
	for i, b := range *list {
		if b.ID == id {
			return slot{list: list, index: i, parent: parent}, true
		}
		if len(b.Children) > 0 {
			if s, ok := locate(&b.Children, b, id); ok {
				return s, true
			}
		}
	}
	return slot{}, false
}

func insertAt(list []*domain.Block, i int, b *domain.Block) []*domain.Block {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = b
	return list
}

func removeAt(list []*domain.Block, i int) []*domain.Block {
	return append(list[:i:i], list[i+1:]...)
}

// contains reports whether id is b itself or one of its descendants.
func contains(b *domain.Block, id string) bool {
	if id == "" || b == nil {
		return false
	}
	if b.ID == id {
		return true
	}
	return domain.Find(b.Children, id) != nil
}

// reassignIDs gives b and every descendant a fresh ID.
func reassignIDs(b *domain.Block, newID func() string) {
	b.ID = newID()
	for _, c := range b.Children {
		reassignIDs(c, newID)
	}
}
