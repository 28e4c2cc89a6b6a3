package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"emailbuilder/internal/domain"
)

const hexColorPattern = `^(#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}))?$`

// JSONSchema returns the draft-7 schema generated from the type's fields.
func (t *BlockType) JSONSchema() map[string]any {
	props := make(map[string]any, len(t.Fields))
	var required []string
	var rules []any

	for _, f := range t.Fields {
		props[f.Name] = fieldSchema(f)
		if f.Validation == nil || !f.Validation.Required {
			continue
		}
		if f.Conditional == nil {
			required = append(required, f.Name)
			continue
		}
		rules = append(rules, map[string]any{
			"if": map[string]any{
				"properties": map[string]any{
					f.Conditional.Field: map[string]any{"enum": enumValues(f.Conditional.Values)},
				},
				"required": []string{f.Conditional.Field},
			},
			"then": map[string]any{
				"required":   []string{f.Name},
				"properties": map[string]any{f.Name: map[string]any{"minLength": 1}},
			},
		})
	}

	s := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"$id":        schemaURL(t.ID),
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	if len(rules) > 0 {
		s["allOf"] = rules
	}
	return s
}

func fieldSchema(f Field) map[string]any {
	s := map[string]any{}
	switch f.Type {
	case FieldCheckbox:
		s["type"] = "boolean"
	case FieldNumber, FieldRange:
		s["type"] = "number"
	case FieldSelect:
		vals := make([]any, 0, len(f.Options))
		for _, o := range f.Options {
			vals = append(vals, o.Value)
		}
		s["enum"] = enumValues(vals)
	case FieldColor:
		s["type"] = "string"
		s["pattern"] = hexColorPattern
	default:
		s["type"] = "string"
	}
	if v := f.Validation; v != nil {
		if v.Min != nil {
			s["minimum"] = *v.Min
		}
		if v.Max != nil {
			s["maximum"] = *v.Max
		}
		if v.MaxLength > 0 {
			s["maxLength"] = v.MaxLength
		}
		if v.Pattern != "" {
			s["pattern"] = v.Pattern
		}
		if v.Required && f.Conditional == nil && s["type"] == "string" {
			s["minLength"] = 1
		}
	}
	return s
}

// enumValues accepts both a value and its string form, since form posts
// deliver numbers as strings.
func enumValues(vals []any) []any {
	out := make([]any, 0, len(vals)*2)
	for _, v := range vals {
		out = append(out, v)
		if _, isString := v.(string); !isString {
			out = append(out, domain.Content{"v": v}.String("v"))
		}
	}
	return out
}

func schemaURL(id string) string {
	return "mem://blocks/" + id + ".schema.json"
}

func compileSchema(t *BlockType) (*jsonschema.Schema, error) {
	data, err := json.Marshal(t.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	url := schemaURL(t.ID)
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(url)
}

func (t *BlockType) validate(c domain.Content) error {
	if c == nil {
		c = domain.Content{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	if err := t.schema.Validate(instance); err != nil {
		return fmt.Errorf("%s content: %w", t.ID, err)
	}
	return nil
}
