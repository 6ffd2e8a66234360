package extractor

import (
	"strings"
	"unicode/utf8"

	"trademe-analyzer/config"
	"trademe-analyzer/dom"
	"trademe-analyzer/utils"
)

// Strategy is one way of finding listing candidates on a page.
type Strategy interface {
	Name() string
	Locate(doc dom.Document) []dom.Node
}

// StrategyCount records what one strategy produced during a locate.
type StrategyCount struct {
	Strategy  string
	Matched   int
	Validated int
}

// Located is the outcome of a successful locate.
type Located struct {
	Strategy string
	Nodes    []dom.Node
	Tried    []StrategyCount
}

// selectorStrategy matches the union of a fixed selector list.
type selectorStrategy struct {
	name      string
	selectors []string
}

func (s selectorStrategy) Name() string { return s.name }

func (s selectorStrategy) Locate(doc dom.Document) []dom.Node {
	return doc.Query(strings.Join(s.selectors, ", "))
}

// contentStrategy scans every element for listing-sized nodes that show a
// price and carry a link or heading.
type contentStrategy struct {
	th config.Thresholds
}

func (contentStrategy) Name() string { return "content-heuristic" }

// Every priced ancestor of a card matches the content heuristic, so its
// matches are narrowed to the innermost candidate.
func (contentStrategy) preferInner() bool { return true }

func (s contentStrategy) Locate(doc dom.Document) []dom.Node {
	var matched []dom.Node
	for _, n := range doc.Query("body *") {
		ext := n.Extent()
		if !ext.Visible() || !ext.AtLeast(s.th.MinNodeWidth, s.th.MinNodeHeight) {
			continue
		}
		if !hasPriceSignal(n.Text()) {
			continue
		}
		if len(n.Query(linkOrHeading)) == 0 {
			continue
		}
		matched = append(matched, n)
	}
	return matched
}

func prefersInner(s Strategy) bool {
	p, ok := s.(interface{ preferInner() bool })
	return ok && p.preferInner()
}

// AttributeMarkerStrategy matches elements with a listing/card data attribute.
func AttributeMarkerStrategy() Strategy {
	return selectorStrategy{name: "attribute-marker", selectors: attributeMarkers}
}

// ClassNameStrategy matches the known listing card class tokens.
func ClassNameStrategy() Strategy {
	return selectorStrategy{name: "class-name", selectors: classMarkers}
}

// StructuralStrategy matches article elements and listing/item/card classes.
func StructuralStrategy() Strategy {
	return selectorStrategy{name: "structural", selectors: structuralSelectors}
}

// ContentHeuristicStrategy matches any sufficiently large priced element.
func ContentHeuristicStrategy(th config.Thresholds) Strategy {
	return contentStrategy{th: th}
}

// DefaultStrategies returns the cascade in priority order.
func DefaultStrategies(th config.Thresholds) []Strategy {
	return []Strategy{
		AttributeMarkerStrategy(),
		ClassNameStrategy(),
		StructuralStrategy(),
		ContentHeuristicStrategy(th),
	}
}

// Locator runs the strategy cascade: the first strategy producing at least
// one validated candidate wins. Validated candidates are de-nested so that a
// grid wrapper never stands in for its cards and a card's inner blocks never
// stand in for the card.
type Locator struct {
	strategies []Strategy
	th         config.Thresholds
	siteURL    string
	logger     *utils.Logger
}

// NewLocator builds a Locator over the given strategies.
func NewLocator(cfg *config.Config, logger *utils.Logger, strategies ...Strategy) *Locator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(cfg.Thresholds)
	}
	return &Locator{
		strategies: strategies,
		th:         cfg.Thresholds,
		siteURL:    cfg.SiteURL,
		logger:     logger,
	}
}

// IsCandidate is the shared validity predicate: visible, showing a price,
// holding a link or heading, and carrying more than a trivial amount of text.
func (l *Locator) IsCandidate(n dom.Node) bool {
	if !n.Extent().Visible() {
		return false
	}
	text := n.Text()
	if utf8.RuneCountInString(text) <= l.th.MinTextLength {
		return false
	}
	if !hasPriceSignal(text) {
		return false
	}
	return len(n.Query(linkOrHeading)) > 0
}

// Cap is the most candidates a single locate returns.
func (l *Locator) Cap(maxItems int) int {
	if maxItems > l.th.CandidateCap {
		return maxItems
	}
	return l.th.CandidateCap
}

// Locate finds the candidates on doc. It fails with a no_listings_found
// *Error when every strategy comes up empty.
func (l *Locator) Locate(doc dom.Document, maxItems int) (*Located, error) {
	limit := l.Cap(maxItems)
	var tried []StrategyCount

	for _, s := range l.strategies {
		found := s.Locate(doc)
		valid := make([]dom.Node, 0, len(found))
		for _, n := range found {
			if l.IsCandidate(n) {
				valid = append(valid, n)
			}
		}
		valid = outermostListings(valid, prefersInner(s))
		tried = append(tried, StrategyCount{Strategy: s.Name(), Matched: len(found), Validated: len(valid)})
		l.logger.Debug("[locator] %s: %d matched, %d validated", s.Name(), len(found), len(valid))

		if len(valid) == 0 {
			continue
		}
		if len(valid) > limit {
			valid = valid[:limit]
		}
		return &Located{Strategy: s.Name(), Nodes: valid, Tried: tried}, nil
	}

	page := NewPageContext(doc, l.siteURL, tried)
	return nil, newNoListingsError(page)
}

// outermostListings reduces validated nodes to one node per listing. A node
// is a grid wrapper, and is dropped, when its top-level inner candidates look
// like separate listings (see separateListings). Otherwise the outer node is
// the card and anything nested in it goes. With preferInner, a node holding
// exactly one inner candidate yields to it, for strategies whose matches are
// not known to be cards.
func outermostListings(nodes []dom.Node, preferInner bool) []dom.Node {
	if len(nodes) < 2 {
		return nodes
	}

	keep := make([]bool, len(nodes))
	for i, n := range nodes {
		var inner []dom.Node
		for j, m := range nodes {
			if i != j && n.Contains(m) {
				inner = append(inner, m)
			}
		}
		top := topLevel(inner)
		switch {
		case separateListings(top):
		case preferInner && len(top) == 1:
		default:
			keep[i] = true
		}
	}

	out := make([]dom.Node, 0, len(nodes))
	for i, n := range nodes {
		if !keep[i] {
			continue
		}
		nested := false
		for j, m := range nodes {
			if i != j && keep[j] && m.Contains(n) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

// topLevel drops the nodes nested inside another node of the set.
func topLevel(nodes []dom.Node) []dom.Node {
	var out []dom.Node
	for i, n := range nodes {
		nested := false
		for j, m := range nodes {
			if i != j && m.Contains(n) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

// separateListings reports whether two of the nodes are different listings:
// either both link to a listing page and the links differ, or they share an
// element signature (a repeated card) and their keys differ. Inner blocks of
// one card have distinct signatures and at most one listing link.
func separateListings(nodes []dom.Node) bool {
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			ka, kb := listingKey(a), listingKey(b)
			if ka == kb {
				continue
			}
			if listingLinkRegexp.MatchString(ka) && listingLinkRegexp.MatchString(kb) {
				return true
			}
			if signature(a) == signature(b) {
				return true
			}
		}
	}
	return false
}

// listingKey is the node's first link target, else its text.
func listingKey(n dom.Node) string {
	for _, a := range n.Query("a[href]") {
		if href, _ := a.Attr("href"); strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	return n.Text()
}

// signature is the tag plus the first class token.
func signature(n dom.Node) string {
	class, _ := n.Attr("class")
	if f := strings.Fields(class); len(f) > 0 {
		return n.Tag() + "." + f[0]
	}
	return n.Tag()
}
