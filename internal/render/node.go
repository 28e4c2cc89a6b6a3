package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// el builds an element; attrs are key/value pairs. Empty values are dropped.
func el(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// add appends children to n, skipping nils, and returns n.
func add(n *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

// lines renders s with newlines as <br>.
func lines(n *html.Node, s string) *html.Node {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			n.AppendChild(el("br"))
		}
		if line = strings.TrimRight(line, "\r"); line != "" {
			n.AppendChild(text(line))
		}
	}
	return n
}

// style joins "prop:value" declarations, skipping those with empty values.
type style []string

func (s style) set(prop, value string) style {
	if value == "" {
		return s
	}
	return append(s, prop+":"+value)
}

func (s style) String() string { return strings.Join(s, ";") }
