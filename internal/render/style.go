package render

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"emailbuilder/internal/domain"
)

const (
	containerWidth = 600
	defaultPrimary = "#2563eb"
	defaultText    = "#1f2937"
	mutedText      = "#6b7280"
)

// stylesheet is embedded in every document. Mail clients that strip
// <style> still get the inline styles on each block.
const stylesheet = `body{margin:0;padding:0;background-color:#f3f4f6;font-family:Helvetica,Arial,sans-serif;color:#1f2937;}
.email-container{width:600px;max-width:600px;margin:0 auto;background-color:#ffffff;}
h1,h2,h3,h4,h5,h6{margin:0;line-height:1.3;}
p{margin:0 0 12px 0;line-height:1.5;}
img{border:0;display:inline-block;max-width:100%;height:auto;}
a{color:inherit;}
.button{display:inline-block;padding:12px 24px;border-radius:4px;text-decoration:none;font-weight:bold;}
.columns{width:100%;border-collapse:collapse;}
.column{vertical-align:top;}
.discount-badge{display:inline-block;padding:16px 24px;border:2px dashed;border-radius:6px;}
.discount-code{font-size:24px;font-weight:bold;letter-spacing:2px;}
.social a,.menu a{margin:0 6px;text-decoration:none;}
.footer{font-size:12px;color:#6b7280;}
@media only screen and (max-width:600px){
.email-container{width:100% !important;}
.column{display:block !important;width:100% !important;}
}`

var (
	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	cssColor = regexp.MustCompile(`^(?:[a-zA-Z]+|rgba?\([0-9., %]+\))$`)
)

// color returns v when it is a plain CSS colour, otherwise "".
// Block content is user input and ends up inside style attributes.
func color(v string) string {
	v = strings.TrimSpace(v)
	if hexColor.MatchString(v) || cssColor.MatchString(v) {
		return v
	}
	return ""
}

func firstColor(vs ...string) string {
	for _, v := range vs {
		if c := color(v); c != "" {
			return c
		}
	}
	return ""
}

func align(v string) string {
	switch v {
	case "left", "center", "right":
		return v
	}
	return ""
}

func px(n int) string { return fmt.Sprintf("%dpx", n) }

// href accepts http(s), mailto, tel, relative links and template tokens
// resolved by the sender; anything else is dropped.
func href(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "{{") && strings.HasSuffix(raw, "}}") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return raw
	}
	return ""
}

// src is href restricted to what an img can load.
func src(raw string) string {
	v := href(raw)
	if strings.HasPrefix(strings.ToLower(v), "mailto:") || strings.HasPrefix(strings.ToLower(v), "tel:") {
		return ""
	}
	return v
}

// wrapperStyle turns a block layout into inline CSS.
func wrapperStyle(l domain.Layout) style {
	p := l.Padding
	s := style{fmt.Sprintf("padding:%dpx %dpx %dpx %dpx", p.Top, p.Right, p.Bottom, p.Left)}
	s = s.set("text-align", align(l.Align))
	return s.set("background-color", color(l.Background))
}
