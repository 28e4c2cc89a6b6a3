package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/registry"
)

// ruleFunc fills wrap, the block's layout wrapper, with the block body.
type ruleFunc func(c *renderContext, b *domain.Block, wrap *html.Node)

func ruleFor(typ string) ruleFunc {
	switch typ {
	case registry.TypeHeading:
		return heading
	case registry.TypeText:
		return textBlock
	case registry.TypeButton:
		return button
	case registry.TypeImage:
		return image
	case registry.TypeLogo:
		return logo
	case registry.TypeDivider:
		return divider
	case registry.TypeSpacer:
		return spacer
	case registry.TypeColumns:
		return columns
	case registry.TypeProduct:
		return product
	case registry.TypeProductGrid:
		return productGrid
	case registry.TypeCollection:
		return collection
	case registry.TypeDiscount:
		return discount
	case registry.TypeSocial:
		return social
	case registry.TypeContact:
		return contact
	case registry.TypeFooter:
		return footer
	case registry.TypeMenu:
		return menu
	}
	return nil
}

func heading(_ *renderContext, b *domain.Block, wrap *html.Node) {
	level := min(max(b.Content.Int("level", 2), 1), 6)
	h := el(fmt.Sprintf("h%d", level),
		"style", style{}.set("color", color(b.Content.String("color"))).String())
	add(wrap, add(h, text(b.Content.String("text"))))
}

func textBlock(c *renderContext, b *domain.Block, wrap *html.Node) {
	size := b.Content.Int("fontSize", 16)
	div := el("div", "class", "text",
		"style", style{}.set("font-size", px(size)).set("color", color(b.Content.String("color"))).String())
	body := b.Content.String("text")
	if b.Content.String("format") == "markdown" {
		if nodes, err := c.r.markdown(body); err == nil {
			add(div, nodes...)
			add(wrap, div)
			return
		}
	}
	add(wrap, add(div, lines(el("p"), body)))
}

// markdown converts body and parses the result back into nodes so it
// can be attached to the document tree.
func (r *Renderer) markdown(body string) ([]*html.Node, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(&buf, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse markdown html: %w", err)
	}
	for _, n := range nodes {
		scrubLinks(n)
	}
	return nodes, nil
}

func scrubLinks(n *html.Node) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			if a.Key == "href" || a.Key == "src" {
				n.Attr[i].Val = href(a.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		scrubLinks(c)
	}
}

func buttonNode(label, link, bg, fg string, full bool) *html.Node {
	s := style{}.set("background-color", bg).set("color", fg)
	if full {
		s = s.set("display", "block").set("text-align", "center")
	}
	return add(el("a", "class", "button", "href", href(link), "style", s.String()), text(label))
}

func button(c *renderContext, b *domain.Block, wrap *html.Node) {
	add(wrap, buttonNode(
		b.Content.String("text"),
		b.Content.String("url"),
		firstColor(b.Content.String("color"), c.primary()),
		firstColor(b.Content.String("textColor"), "#ffffff"),
		b.Content.Bool("fullWidth"),
	))
}

func imgNode(url, alt string, width string) *html.Node {
	if src(url) == "" {
		return nil
	}
	return el("img", "src", src(url), "alt", alt,
		"style", style{}.set("width", width).set("max-width", "100%").String())
}

// image renders nothing inside its wrapper when no URL is set.
func image(_ *renderContext, b *domain.Block, wrap *html.Node) {
	img := imgNode(b.Content.String("url"), b.Content.String("alt"),
		fmt.Sprintf("%d%%", b.Content.Int("width", 100)))
	if img == nil {
		return
	}
	if link := href(b.Content.String("link")); link != "" {
		img = add(el("a", "href", link), img)
	}
	add(wrap, img)
}

// logo falls back to the store logo.
func logo(c *renderContext, b *domain.Block, wrap *html.Node) {
	url := b.Content.String("url")
	if url == "" {
		url = c.branding.LogoURL
	}
	alt := b.Content.String("alt")
	if alt == "" {
		alt = c.branding.StoreName
	}
	add(wrap, imgNode(url, alt, px(b.Content.Int("width", 160))))
}

func divider(_ *renderContext, b *domain.Block, wrap *html.Node) {
	border := fmt.Sprintf("%dpx solid %s",
		b.Content.Int("thickness", 1), firstColor(b.Content.String("color"), "#e5e7eb"))
	add(wrap, el("hr", "style", style{}.set("border", "none").set("border-top", border).set("margin", "0").String()))
}

func spacer(_ *renderContext, b *domain.Block, wrap *html.Node) {
	h := px(b.Content.Int("height", 24))
	add(wrap, add(el("div", "style", style{}.set("height", h).set("line-height", h).set("font-size", "0").String()),
		text(" ")))
}

// maxColumns bounds grid rows whatever the stored content says.
const maxColumns = 3

// grid lays cells out count per row in a presentation table whose cells
// stack on narrow screens. gap is the horizontal space between cells.
func grid(count, gap int, cells []*html.Node) *html.Node {
	count = min(max(count, 1), maxColumns)
	var pad string
	if half := min(max(gap, 0), 48) / 2; half > 0 {
		pad = style{}.set("padding", fmt.Sprintf("0 %s", px(half))).String()
	}
	width := fmt.Sprintf("%d%%", 100/count)
	tbody := el("tbody")
	for start := 0; start < len(cells) || start == 0; start += count {
		tr := el("tr")
		for i := start; i < start+count; i++ {
			td := el("td", "class", "column", "width", width, "valign", "top", "style", pad)
			if i < len(cells) {
				add(td, cells[i])
			}
			add(tr, td)
		}
		add(tbody, tr)
	}
	return add(el("table", "class", "columns", "role", "presentation",
		"width", "100%", "cellpadding", "0", "cellspacing", "0"), tbody)
}

func columns(c *renderContext, b *domain.Block, wrap *html.Node) {
	cells := make([]*html.Node, len(b.Children))
	for i, child := range b.Children {
		cells[i] = c.block(child)
	}
	add(wrap, grid(b.Content.Int("count", 2), b.Content.Int("gap", 16), cells))
}

func price(v string) *html.Node {
	if v == "" {
		return nil
	}
	return add(el("p", "class", "price", "style", "font-weight:bold"), text(v))
}

func product(c *renderContext, b *domain.Block, wrap *html.Node) {
	content := b.Content
	name := content.String("name")
	add(wrap, imgNode(content.String("imageUrl"), name, "100%"))
	if name != "" {
		add(wrap, add(el("h3", "class", "product-name"), text(name)))
	}
	if content.Bool("showPrice") {
		add(wrap, price(content.String("price")))
	}
	if label := content.String("buttonText"); label != "" && content.String("url") != "" {
		add(wrap, buttonNode(label, content.String("url"), c.primary(), "#ffffff", false))
	}
}

// productGrid renders the records stored under "products" by the picker.
func productGrid(_ *renderContext, b *domain.Block, wrap *html.Node) {
	if title := b.Content.String("title"); title != "" {
		add(wrap, add(el("h2"), text(title)))
	}
	showPrice := b.Content.Bool("showPrice")
	var cells []*html.Node
	for _, p := range b.Content.Records("products") {
		name := p.String("name")
		cell := el("div", "class", "grid-product", "style", "padding:8px")
		card := imgNode(p.String("imageUrl"), name, "100%")
		if link := href(p.String("url")); link != "" && card != nil {
			card = add(el("a", "href", link), card)
		}
		add(cell, card)
		if name != "" {
			add(cell, add(el("p", "class", "product-name"), text(name)))
		}
		if showPrice {
			add(cell, price(p.String("price")))
		}
		cells = append(cells, cell)
	}
	if len(cells) == 0 {
		return
	}
	add(wrap, grid(b.Content.Int("columns", 2), 0, cells))
}

func collection(c *renderContext, b *domain.Block, wrap *html.Node) {
	title := b.Content.String("title")
	add(wrap, imgNode(b.Content.String("imageUrl"), title, "100%"))
	if title != "" {
		add(wrap, add(el("h3"), text(title)))
	}
	if label := b.Content.String("buttonText"); label != "" && b.Content.String("url") != "" {
		add(wrap, buttonNode(label, b.Content.String("url"), c.primary(), "#ffffff", false))
	}
}

// discount shows the expiry only when it is enabled and present. Whether
// the code has already expired is the picker's concern.
func discount(c *renderContext, b *domain.Block, wrap *html.Node) {
	code := b.Content.String("code")
	desc := b.Content.String("description")
	if code == "" && desc == "" {
		return
	}
	accent := firstColor(b.Content.String("color"), c.primary())
	badge := el("div", "class", "discount-badge", "style", style{}.set("border-color", accent).String())
	if code != "" {
		add(badge, add(el("p", "class", "discount-code", "style", style{}.set("color", accent).String()), text(code)))
	}
	if desc != "" {
		add(badge, add(el("p", "class", "discount-description"), text(desc)))
	}
	if b.Content.Bool("showExpiry") {
		if exp := b.Content.String("expiresAt"); exp != "" {
			add(badge, add(el("p", "class", "discount-expiry", "style", "font-size:12px;color:"+mutedText),
				text("Expires "+expiryDate(exp))))
		}
	}
	add(wrap, badge)
}

func expiryDate(v string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return v
}

var socialNetworks = []struct{ key, label string }{
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"twitter", "X"},
	{"tiktok", "TikTok"},
	{"youtube", "YouTube"},
	{"linkedin", "LinkedIn"},
}

// social leaves an empty wrapper when no network is set.
func social(c *renderContext, b *domain.Block, wrap *html.Node) {
	var links []*html.Node
	for _, n := range socialNetworks {
		link := href(b.Content.String(n.key))
		if link == "" {
			continue
		}
		links = append(links, add(el("a", "href", link, "style", "color:"+c.primary()), text(n.label)))
	}
	if len(links) == 0 {
		return
	}
	add(wrap, add(el("div", "class", "social"), links...))
}

func contact(_ *renderContext, b *domain.Block, wrap *html.Node) {
	var rows []*html.Node
	if v := b.Content.String("email"); v != "" {
		rows = append(rows, add(el("p"), add(el("a", "href", href("mailto:"+v)), text(v))))
	}
	if v := b.Content.String("phone"); v != "" {
		rows = append(rows, add(el("p"), add(el("a", "href", href("tel:"+strings.ReplaceAll(v, " ", ""))), text(v))))
	}
	if v := b.Content.String("address"); v != "" {
		rows = append(rows, lines(el("p"), v))
	}
	if v := b.Content.String("website"); v != "" {
		rows = append(rows, add(el("p"), add(el("a", "href", href(v)), text(v))))
	}
	if len(rows) == 0 {
		return
	}
	add(wrap, add(el("div", "class", "contact"), rows...))
}

// UnsubscribePlaceholder is substituted by the sending system.
const UnsubscribePlaceholder = "{{unsubscribe_url}}"

func footer(c *renderContext, b *domain.Block, wrap *html.Node) {
	f := el("div", "class", "footer")
	if v := b.Content.String("customText"); v != "" {
		add(f, lines(el("p"), v))
	}
	line := fmt.Sprintf("© %d %s. All rights reserved.", c.year, c.branding.StoreName)
	if c.branding.StoreName == "" {
		line = fmt.Sprintf("© %d. All rights reserved.", c.year)
	}
	add(f, add(el("p", "class", "copyright"), text(line)))
	if b.Content.Bool("showAddress") && c.branding.Address != "" {
		add(f, lines(el("p", "class", "address"), c.branding.Address))
	}
	label := b.Content.String("unsubscribeText")
	if label == "" {
		label = "Unsubscribe"
	}
	add(f, add(el("p"), add(el("a", "href", UnsubscribePlaceholder, "class", "unsubscribe"), text(label))))
	add(wrap, f)
}

// menu renders "Label | url" lines as inline links.
func menu(c *renderContext, b *domain.Block, wrap *html.Node) {
	sep := b.Content.String("separator")
	nav := el("div", "class", "menu")
	n := 0
	for _, line := range strings.Split(b.Content.String("links"), "\n") {
		label, link, _ := strings.Cut(line, "|")
		label, link = strings.TrimSpace(label), href(link)
		if label == "" || link == "" {
			continue
		}
		if n > 0 && sep != "" {
			add(nav, add(el("span", "class", "separator", "style", "color:"+mutedText), text(sep)))
		}
		add(nav, add(el("a", "href", link, "style", "color:"+firstColor(c.branding.PrimaryColor, defaultText)), text(label)))
		n++
	}
	if n > 0 {
		add(wrap, nav)
	}
}
