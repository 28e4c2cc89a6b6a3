package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"emailbuilder/internal/domain"
)

// Category groups block types in the palette.
type Category string

const (
	CategoryContent    Category = "content"
	CategoryMedia      Category = "media"
	CategoryActions    Category = "actions"
	CategoryLayout     Category = "layout"
	CategorySocial     Category = "social"
	CategoryFooter     Category = "footer"
	CategoryNavigation Category = "navigation"
)

// Categories lists every category in palette order.
var Categories = []Category{
	CategoryContent, CategoryMedia, CategoryActions, CategoryLayout,
	CategorySocial, CategoryFooter, CategoryNavigation,
}

var ErrUnknownType = errors.New("unknown block type")

// BlockType describes one kind of block. Values are immutable once
// registered; lookups hand out pointers that callers must not modify.
type BlockType struct {
	ID       string
	Name     string
	Category Category
	Fields   []Field

	// MaxPerDocument caps instances across the whole tree; 0 means no cap.
	MaxPerDocument    int
	Container         bool
	AllowedChildTypes []string
	DefaultLayout     domain.Layout

	// PickKind names the picker that fills this block, if any. PickFields
	// maps record field -> content field for the values the block keeps.
	PickKind   domain.PickKind
	PickFields map[string]string

	defaultContent domain.Content
	schema         *jsonschema.Schema
}

// DefaultContent returns a fresh copy of the seed content.
func (t *BlockType) DefaultContent() domain.Content {
	return t.defaultContent.Clone()
}

// Field returns the named field descriptor.
func (t *BlockType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// VisibleFields returns the fields whose conditional rule matches content.
func (t *BlockType) VisibleFields(c domain.Content) []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Applies(c) {
			out = append(out, f)
		}
	}
	return out
}

// Allows reports whether childType may nest inside this container.
func (t *BlockType) Allows(childType string) bool {
	return t.Container && slices.Contains(t.AllowedChildTypes, childType)
}

// Registry is the static catalog of block types.
type Registry struct {
	types map[string]*BlockType
	order []string
}

// New builds a registry, deriving default content and compiling each
// type's validation schema.
func New(types ...BlockType) (*Registry, error) {
	r := &Registry{types: make(map[string]*BlockType, len(types))}
	for i := range types {
		t := types[i]
		if t.ID == "" {
			return nil, fmt.Errorf("block type %d: empty id", i)
		}
		if _, dup := r.types[t.ID]; dup {
			return nil, fmt.Errorf("block type %q: duplicate id", t.ID)
		}
		if !slices.Contains(Categories, t.Category) {
			return nil, fmt.Errorf("block type %q: unknown category %q", t.ID, t.Category)
		}
		if err := checkFields(t.Fields); err != nil {
			return nil, fmt.Errorf("block type %q: %w", t.ID, err)
		}
		t.defaultContent = collectDefaults(t.Fields)
		schema, err := compileSchema(&t)
		if err != nil {
			return nil, fmt.Errorf("block type %q: compile schema: %w", t.ID, err)
		}
		t.schema = schema
		r.types[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	for _, id := range r.order {
		t := r.types[id]
		for _, child := range t.AllowedChildTypes {
			if _, ok := r.types[child]; !ok {
				return nil, fmt.Errorf("block type %q: allowed child %q is not registered", id, child)
			}
		}
	}
	return r, nil
}

// MustNew is New for package-level registries.
func MustNew(types ...BlockType) *Registry {
	r, err := New(types...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the block type for id.
func (r *Registry) Get(id string) (*BlockType, bool) {
	t, ok := r.types[id]
	return t, ok
}

// Types returns every block type in registration order.
func (r *Registry) Types() []*BlockType {
	out := make([]*BlockType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

// ListByCategory returns the types of a category in registration order.
func (r *Registry) ListByCategory(cat Category) []*BlockType {
	var out []*BlockType
	for _, id := range r.order {
		if t := r.types[id]; t.Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// DefaultContentFor returns the seed content for a type, or nil when the
// type is not registered.
func (r *Registry) DefaultContentFor(id string) domain.Content {
	t, ok := r.types[id]
	if !ok {
		return nil
	}
	return t.DefaultContent()
}

// CanContain reports whether childType may be nested in parentType.
func (r *Registry) CanContain(parentType, childType string) bool {
	t, ok := r.types[parentType]
	return ok && t.Allows(childType)
}

// Validate checks content against the type's field schema.
func (r *Registry) Validate(id string, c domain.Content) error {
	t, ok := r.types[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return t.validate(c)
}

func collectDefaults(fields []Field) domain.Content {
	c := make(domain.Content, len(fields))
	for _, f := range fields {
		if f.Default != nil {
			c[f.Name] = f.Default
		}
	}
	return c
}
