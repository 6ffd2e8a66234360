package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attributes a rendering host stamps onto its snapshot so that rendered
// geometry survives serialization.
const (
	WidthAttr  = "data-rendered-width"
	HeightAttr = "data-rendered-height"
	ReadyAttr  = "data-ready-state"
)

var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// HTMLDocument is a Document backed by a parsed goquery tree.
type HTMLDocument struct {
	doc *goquery.Document
	url string
}

// Parse reads an HTML page. pageURL is the address the page was loaded from.
func Parse(r io.Reader, pageURL string) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse html: %w", err)
	}
	return &HTMLDocument{doc: doc, url: pageURL}, nil
}

// ParseString is Parse over an in-memory page.
func ParseString(page, pageURL string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(page), pageURL)
}

func (d *HTMLDocument) Query(selector string) []Node {
	return wrap(d.doc.Find(selector))
}

func (d *HTMLDocument) URL() string {
	return d.url
}

func (d *HTMLDocument) Title() string {
	return collapse(d.doc.Find("title").First().Text())
}

// Ready is true unless the host recorded a ready state other than "complete".
func (d *HTMLDocument) Ready() bool {
	if d.doc.Find("body").Length() == 0 {
		return false
	}
	state, ok := d.doc.Find("html").First().Attr(ReadyAttr)
	return !ok || state == "complete"
}

func (d *HTMLDocument) ElementCount() int {
	return d.doc.Find("body *").Length()
}

type htmlNode struct {
	sel *goquery.Selection
}

func wrap(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &htmlNode{sel: s})
	})
	return nodes
}

func (n *htmlNode) raw() *html.Node {
	return n.sel.Get(0)
}

func (n *htmlNode) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n *htmlNode) Text() string {
	var b strings.Builder
	collectText(n.raw(), &b)
	return collapse(b.String())
}

func (n *htmlNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *htmlNode) Query(selector string) []Node {
	return wrap(n.sel.Find(selector))
}

func (n *htmlNode) Fragments() []string {
	var out []string
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if t := collapse(c.Data); t != "" {
					out = append(out, t)
				}
			case html.ElementNode:
				if !skipTags[c.Data] {
					walk(c)
				}
			}
		}
	}
	walk(n.raw())
	return out
}

func (n *htmlNode) Extent() Extent {
	if hidden(n.raw()) {
		return Extent{Measured: true}
	}
	w, okW := floatAttr(n.sel, WidthAttr)
	h, okH := floatAttr(n.sel, HeightAttr)
	if okW && okH {
		return Extent{Width: w, Height: h, Measured: true}
	}
	return Extent{}
}

func (n *htmlNode) Contains(other Node) bool {
	o, ok := other.(*htmlNode)
	if !ok {
		return false
	}
	self := n.raw()
	for p := o.raw().Parent; p != nil; p = p.Parent {
		if p == self {
			return true
		}
	}
	return false
}

func collectText(h *html.Node, b *strings.Builder) {
	switch h.Type {
	case html.TextNode:
		b.WriteString(h.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if skipTags[h.Data] {
			return
		}
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// hidden reports whether the node or an ancestor is explicitly hidden.
func hidden(h *html.Node) bool {
	for n := h; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if skipTags[n.Data] {
			return true
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "hidden":
				return true
			case "aria-hidden":
				if strings.EqualFold(a.Val, "true") {
					return true
				}
			case "style":
				style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
				if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
					return true
				}
			}
		}
	}
	return false
}

func floatAttr(sel *goquery.Selection, name string) (float64, bool) {
	v, ok := sel.Attr(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
