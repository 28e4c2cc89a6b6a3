package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/domain"
)

func TestDefault_LookupAndCategories(t *testing.T) {
	heading, ok := Default.Get(TypeHeading)
	require.True(t, ok)
	assert.Equal(t, CategoryContent, heading.Category)

	_, ok = Default.Get("carousel")
	assert.False(t, ok)

	var total int
	for _, cat := range Categories {
		for _, bt := range Default.ListByCategory(cat) {
			assert.Equal(t, cat, bt.Category)
			total++
		}
	}
	assert.Equal(t, len(Default.Types()), total, "every type belongs to exactly one category")
}

func TestDefaultContentFor(t *testing.T) {
	c := Default.DefaultContentFor(TypeHeading)
	assert.Equal(t, "Welcome to our store", c["text"])
	assert.Equal(t, 2, c["level"])

	// Each call hands out an independent copy.
	c["text"] = "changed"
	assert.Equal(t, "Welcome to our store", Default.DefaultContentFor(TypeHeading)["text"])

	assert.Nil(t, Default.DefaultContentFor("nope"))
}

func TestCanContain(t *testing.T) {
	assert.True(t, Default.CanContain(TypeColumns, TypeText))
	assert.False(t, Default.CanContain(TypeColumns, TypeColumns))
	assert.False(t, Default.CanContain(TypeColumns, TypeFooter))
	assert.False(t, Default.CanContain(TypeText, TypeText), "non-containers hold nothing")
	assert.False(t, Default.CanContain("nope", TypeText))
}

func TestNew_RejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		types []BlockType
	}{
		{"empty id", []BlockType{{Category: CategoryContent}}},
		{"duplicate", []BlockType{{ID: "a", Category: CategoryContent}, {ID: "a", Category: CategoryContent}}},
		{"bad category", []BlockType{{ID: "a", Category: "commerce"}}},
		{"bad field type", []BlockType{{ID: "a", Category: CategoryContent, Fields: []Field{{Name: "x", Type: "date"}}}}},
		{"select without options", []BlockType{{ID: "a", Category: CategoryContent, Fields: []Field{{Name: "x", Type: FieldSelect}}}}},
		{"dangling conditional", []BlockType{{ID: "a", Category: CategoryContent, Fields: []Field{
			{Name: "x", Type: FieldText, Conditional: &Conditional{Field: "y", Values: []any{true}}},
		}}}},
		{"unknown child", []BlockType{{ID: "a", Category: CategoryLayout, Container: true, AllowedChildTypes: []string{"b"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.types...)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid for every type", func(t *testing.T) {
		for _, bt := range Default.Types() {
			assert.NoError(t, Default.Validate(bt.ID, bt.DefaultContent()), bt.ID)
		}
	})

	t.Run("select enum", func(t *testing.T) {
		assert.NoError(t, Default.Validate(TypeHeading, domain.Content{"text": "Hi", "level": 3}))
		assert.NoError(t, Default.Validate(TypeHeading, domain.Content{"text": "Hi", "level": "3"}))
		assert.Error(t, Default.Validate(TypeHeading, domain.Content{"text": "Hi", "level": 9}))
	})

	t.Run("required non-empty", func(t *testing.T) {
		assert.Error(t, Default.Validate(TypeHeading, domain.Content{"text": ""}))
		assert.Error(t, Default.Validate(TypeHeading, domain.Content{}))
	})

	t.Run("colour pattern", func(t *testing.T) {
		assert.NoError(t, Default.Validate(TypeButton, domain.Content{"text": "Go", "color": "#ff0000"}))
		assert.Error(t, Default.Validate(TypeButton, domain.Content{"text": "Go", "color": "red"}))
	})

	t.Run("range bounds", func(t *testing.T) {
		assert.Error(t, Default.Validate(TypeSpacer, domain.Content{"height": 1000}))
	})

	t.Run("unknown fields are kept", func(t *testing.T) {
		assert.NoError(t, Default.Validate(TypeText, domain.Content{"text": "x", "futureField": map[string]any{"a": 1}}))
	})

	t.Run("unknown type", func(t *testing.T) {
		assert.ErrorIs(t, Default.Validate("nope", nil), ErrUnknownType)
	})
}

func TestValidate_ConditionalRequired(t *testing.T) {
	reg, err := New(BlockType{
		ID: "promo", Category: CategoryActions,
		Fields: []Field{
			{Name: "mode", Type: FieldSelect, Default: "none", Options: []Option{{Value: "none"}, {Value: "link"}}},
			{Name: "url", Type: FieldURL, Validation: &Validation{Required: true},
				Conditional: &Conditional{Field: "mode", Values: []any{"link"}}},
		},
	})
	require.NoError(t, err)

	assert.NoError(t, reg.Validate("promo", domain.Content{"mode": "none"}))
	assert.Error(t, reg.Validate("promo", domain.Content{"mode": "link"}))
	assert.Error(t, reg.Validate("promo", domain.Content{"mode": "link", "url": ""}))
	assert.NoError(t, reg.Validate("promo", domain.Content{"mode": "link", "url": "https://shop.test"}))
}

func TestVisibleFields(t *testing.T) {
	discount, _ := Default.Get(TypeDiscount)

	names := func(fs []Field) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}

	assert.NotContains(t, names(discount.VisibleFields(domain.Content{"showExpiry": false})), "expiresAt")
	assert.Contains(t, names(discount.VisibleFields(domain.Content{"showExpiry": true})), "expiresAt")
}

func TestMaxPerDocument(t *testing.T) {
	logo, _ := Default.Get(TypeLogo)
	footer, _ := Default.Get(TypeFooter)
	text, _ := Default.Get(TypeText)
	assert.Equal(t, 1, logo.MaxPerDocument)
	assert.Equal(t, 1, footer.MaxPerDocument)
	assert.Zero(t, text.MaxPerDocument)
}

func TestFieldApplies(t *testing.T) {
	f := Field{Name: "x", Type: FieldText, Conditional: &Conditional{Field: "mode", Values: []any{"link", true}}}

	assert.True(t, f.Applies(domain.Content{"mode": "link"}))
	assert.True(t, f.Applies(domain.Content{"mode": true}))
	assert.False(t, f.Applies(domain.Content{"mode": "none"}))
	assert.False(t, f.Applies(nil))
	assert.True(t, Field{Name: "y"}.Applies(nil))
}
