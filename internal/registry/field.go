package registry

import (
	"errors"
	"fmt"
	"slices"

	"emailbuilder/internal/domain"
)

// FieldType is the editor control a settings field uses.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldColor    FieldType = "color"
	FieldNumber   FieldType = "number"
	FieldRange    FieldType = "range"
	FieldURL      FieldType = "url"
	FieldImage    FieldType = "image"
)

var fieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldSelect, FieldCheckbox, FieldColor,
	FieldNumber, FieldRange, FieldURL, FieldImage,
}

// Option is one choice of a select field.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Validation constrains a field's value.
type Validation struct {
	Required  bool     `json:"required,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// Conditional makes a field applicable only while another field holds one
// of Values.
type Conditional struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

// Field describes one entry of a block type's settings schema.
type Field struct {
	Name        string       `json:"name"`
	Type        FieldType    `json:"type"`
	Label       string       `json:"label"`
	Default     any          `json:"default,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Validation  *Validation  `json:"validation,omitempty"`
	Conditional *Conditional `json:"conditional,omitempty"`
}

// Applies evaluates the field's conditional rule against content.
func (f Field) Applies(c domain.Content) bool {
	if f.Conditional == nil {
		return true
	}
	got := c.String(f.Conditional.Field)
	for _, v := range f.Conditional.Values {
		if (domain.Content{"v": v}).String("v") == got {
			return true
		}
	}
	return false
}

func checkFields(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return errors.New("field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if !slices.Contains(fieldTypes, f.Type) {
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("field %q: select without options", f.Name)
		}
	}
	for _, f := range fields {
		if f.Conditional != nil && !seen[f.Conditional.Field] {
			return fmt.Errorf("field %q: conditional on unknown field %q", f.Name, f.Conditional.Field)
		}
	}
	return nil
}

func ptr(f float64) *float64 { return &f }
