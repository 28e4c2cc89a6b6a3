package domain

import "strings"

// Block is a single node of an email template's block tree.
// Content holds user-entered values keyed by the block type's field names;
// Layout is independent of content. Only container types carry Children.
type Block struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Content  Content  `json:"content"`
	Layout   Layout   `json:"layout"`
	Children []*Block `json:"children,omitempty"`
}

// Padding is expressed in pixels.
type Padding struct {
	Top    int `json:"top" yaml:"top" toml:"top"`
	Right  int `json:"right" yaml:"right" toml:"right"`
	Bottom int `json:"bottom" yaml:"bottom" toml:"bottom"`
	Left   int `json:"left" yaml:"left" toml:"left"`
}

// Layout carries the presentational wrapper of a block.
type Layout struct {
	Padding    Padding `json:"padding"`
	Align      string  `json:"align,omitempty"`      // left | center | right
	Background string  `json:"background,omitempty"` // CSS colour
}

// Clone returns a deep copy of b, keeping IDs.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := &Block{
		ID:      b.ID,
		Type:    b.Type,
		Content: b.Content.Clone(),
		Layout:  b.Layout,
	}
	if b.Children != nil {
		c.Children = CloneTree(b.Children)
	}
	return c
}

// CloneTree deep-copies an ordered block sequence.
// A nil input stays nil so snapshots compare equal to their source.
func CloneTree(blocks []*Block) []*Block {
	if blocks == nil {
		return nil
	}
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// Walk visits every block depth-first in document order.
// Returning false from fn stops the walk.
func Walk(blocks []*Block, fn func(b *Block, parent *Block) bool) bool {
	return walk(blocks, nil, fn)
}

func walk(blocks []*Block, parent *Block, fn func(b *Block, parent *Block) bool) bool {
	for _, b := range blocks {
		if !fn(b, parent) {
			return false
		}
		if !walk(b.Children, b, fn) {
			return false
		}
	}
	return true
}

// Find returns the block with the given ID anywhere in the tree.
func Find(blocks []*Block, id string) *Block {
	var found *Block
	Walk(blocks, func(b *Block, _ *Block) bool {
		if b.ID == id {
			found = b
			return false
		}
		return true
	})
	return found
}

// CountType counts blocks of typeID across the whole tree.
func CountType(blocks []*Block, typeID string) int {
	n := 0
	Walk(blocks, func(b *Block, _ *Block) bool {
		if b.Type == typeID {
			n++
		}
		return true
	})
	return n
}

// IDs collects every block ID in the tree.
func IDs(blocks []*Block) map[string]struct{} {
	ids := make(map[string]struct{})
	Walk(blocks, func(b *Block, _ *Block) bool {
		ids[b.ID] = struct{}{}
		return true
	})
	return ids
}

// Outline renders a compact one-line description of the tree, e.g.
// "heading text columns[text,image]". Used in logs and MCP summaries.
func Outline(blocks []*Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		s := b.Type
		if len(b.Children) > 0 {
			s += "[" + strings.ReplaceAll(Outline(b.Children), " ", ",") + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
