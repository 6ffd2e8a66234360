// Package dom is the read-only view of a host page that the extractor works
// against. Nodes are borrowed handles into a document owned by the host; the
// extractor never mutates them and never keeps them past a run.
package dom

// Extent is the rendered size of a node. Measured is false when the host
// could not lay the page out (a static HTML snapshot, for instance).
type Extent struct {
	Width    float64
	Height   float64
	Measured bool
}

// Visible reports whether the node occupies any rendered area. Unmeasured
// nodes count as visible.
func (e Extent) Visible() bool {
	return !e.Measured || (e.Width > 0 && e.Height > 0)
}

// AtLeast reports whether the node is at least w by h. Unmeasured nodes pass.
func (e Extent) AtLeast(w, h float64) bool {
	return !e.Measured || (e.Width >= w && e.Height >= h)
}

// Node is one element of the document tree.
type Node interface {
	// Tag is the lower-case element name.
	Tag() string
	// Text is the element's visible text with whitespace collapsed.
	Text() string
	// Attr looks up an attribute.
	Attr(name string) (string, bool)
	// Query returns the descendants matching a CSS selector, in document order.
	Query(selector string) []Node
	// Fragments returns each non-empty descendant text node, whitespace collapsed.
	Fragments() []string
	// Extent is the rendered size of the element.
	Extent() Extent
	// Contains reports whether other is a strict descendant of this node.
	Contains(other Node) bool
}

// Document is a page snapshot.
type Document interface {
	Query(selector string) []Node
	URL() string
	Title() string
	// Ready reports whether the host finished its initial render.
	Ready() bool
	// ElementCount is the number of elements under <body>.
	ElementCount() int
}
