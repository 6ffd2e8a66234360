package trademe

import (
	"net/url"
	"strings"

	"trademe-analyzer/dom"
)

// nextSelectors find the "next page" control on a results page, in order.
var nextSelectors = []string{
	`a[rel="next"]`,
	`a[aria-label="Next"]`,
	".pagination-next",
	".tm-pagination-next",
	`[data-testid="next-page"]`,
}

// nextLinkText is matched against anchor text when no selector hits.
const nextLinkText = "Next"

func disabled(n dom.Node) bool {
	if _, ok := n.Attr("disabled"); ok {
		return true
	}
	if v, _ := n.Attr("aria-disabled"); strings.EqualFold(v, "true") {
		return true
	}
	class, _ := n.Attr("class")
	for _, c := range strings.Fields(class) {
		if c == "disabled" {
			return true
		}
	}
	return false
}

// nextHref returns the target of the first enabled next control that
// carries a link, or "".
func nextHref(doc dom.Document) string {
	var controls []dom.Node
	for _, sel := range nextSelectors {
		controls = append(controls, doc.Query(sel)...)
	}
	for _, a := range doc.Query("a") {
		if a.Text() == nextLinkText {
			controls = append(controls, a)
		}
	}

	for _, c := range controls {
		if disabled(c) {
			continue
		}
		if href, ok := c.Attr("href"); ok && usableHref(href) {
			return href
		}
		for _, a := range c.Query("a[href]") {
			if href, _ := a.Attr("href"); usableHref(href) && !disabled(a) {
				return href
			}
		}
	}
	return ""
}

func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	return href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(strings.ToLower(href), "javascript:")
}

// resolveAgainst resolves ref against the first absolute base given.
func resolveAgainst(ref string, bases ...string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	for _, b := range bases {
		base, err := url.Parse(b)
		if err == nil && base.IsAbs() && base.Host != "" {
			return base.ResolveReference(u).String()
		}
	}
	return ""
}
