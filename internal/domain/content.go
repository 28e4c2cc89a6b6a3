package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Content is the user-entered record of a block. Its shape for each block
// type is declared by that type's registry fields; keys the registry does
// not know are kept untouched so newer clients' data survives a round trip.
type Content map[string]any

// Clone deep-copies maps and slices; scalar values are shared.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Content:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case PickedRecord:
		return PickedRecord(Content(t).Clone())
	default:
		return v
	}
}

// String returns the value under key rendered as a trimmed string.
func (c Content) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Bool interprets checkbox-style values; strings "true"/"1"/"on" count as set.
func (c Content) Bool(key string) bool {
	switch t := c[key].(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "on", "yes":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// Int returns a numeric value, falling back to def when absent or unparsable.
func (c Content) Int(key string, def int) int {
	switch t := c[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Records returns a list value as records, skipping entries that are not objects.
func (c Content) Records(key string) []Content {
	var out []Content
	switch t := c[key].(type) {
	case []any:
		for _, v := range t {
			if r := asContent(v); r != nil {
				out = append(out, r)
			}
		}
	case []map[string]any:
		for _, v := range t {
			out = append(out, Content(v))
		}
	case []PickedRecord:
		for _, v := range t {
			out = append(out, Content(v))
		}
	}
	return out
}

func asContent(v any) Content {
	switch t := v.(type) {
	case map[string]any:
		return Content(t)
	case Content:
		return t
	case PickedRecord:
		return Content(t)
	}
	return nil
}

// Blank reports whether every listed key is empty.
func (c Content) Blank(keys ...string) bool {
	for _, k := range keys {
		if c.String(k) != "" {
			return false
		}
	}
	return true
}
