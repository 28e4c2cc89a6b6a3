// Package render compiles a block tree into the standalone HTML document
// that is sent to subscribers. It has no edit-mode affordances.
package render

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"

	"emailbuilder/internal/domain"
)

// Renderer turns block trees into HTML. It is safe for concurrent use.
type Renderer struct {
	now func() time.Time
	md  goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock fixes the time used for the footer year.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		now: time.Now,
		// Raw HTML in markdown is omitted by goldmark unless WithUnsafe is set.
		md: goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var std = New()

// Render renders with the default renderer.
func Render(blocks []*domain.Block, b domain.Branding) string {
	return std.Render(blocks, b)
}

// Render returns the full document for blocks with the given branding.
// Every tree renders; blocks that cannot be rendered become empty containers.
func (r *Renderer) Render(blocks []*domain.Block, b domain.Branding) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer do not fail.
	_ = r.RenderTo(&buf, blocks, b)
	return buf.String()
}

// RenderTo writes the document to w.
func (r *Renderer) RenderTo(w io.Writer, blocks []*domain.Block, b domain.Branding) error {
	doc := r.document(blocks, b)
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}

func (r *Renderer) document(blocks []*domain.Block, b domain.Branding) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	title := b.StoreName
	if title == "" {
		title = "Email"
	}
	head := add(el("head"),
		el("meta", "charset", "utf-8"),
		el("meta", "name", "viewport", "content", "width=device-width, initial-scale=1.0"),
		el("meta", "http-equiv", "X-UA-Compatible", "content", "IE=edge"),
		add(el("title"), text(title)),
		add(el("style", "type", "text/css"), text(stylesheet)),
	)

	container := el("div", "class", "email-container",
		"style", style{}.set("width", px(containerWidth)).set("max-width", px(containerWidth)).
			set("margin", "0 auto").set("background-color", "#ffffff").String())
	ctx := &renderContext{r: r, branding: b, year: r.now().Year()}
	for _, blk := range blocks {
		container.AppendChild(ctx.block(blk))
	}

	body := add(el("body"), container)
	doc.AppendChild(add(el("html", "lang", "en"), head, body))
	return doc
}

// renderContext carries the per-document inputs through block rules.
type renderContext struct {
	r        *Renderer
	branding domain.Branding
	year     int
}

func (c *renderContext) primary() string {
	return firstColor(c.branding.PrimaryColor, defaultPrimary)
}

// block renders one block and its children. A rule that fails for any
// reason yields the unknown-block placeholder instead.
func (c *renderContext) block(b *domain.Block) (n *html.Node) {
	if b == nil {
		return unknown()
	}
	rule := ruleFor(b.Type)
	if rule == nil {
		return unknown()
	}
	defer func() {
		if recover() != nil {
			n = unknown()
		}
	}()
	wrap := el("div",
		"class", "block block-"+b.Type,
		"style", wrapperStyle(b.Layout).String())
	if b.Content == nil {
		b = &domain.Block{ID: b.ID, Type: b.Type, Content: domain.Content{}, Layout: b.Layout, Children: b.Children}
	}
	rule(c, b, wrap)
	return wrap
}

func unknown() *html.Node {
	return el("div", "class", "block block-unknown")
}
