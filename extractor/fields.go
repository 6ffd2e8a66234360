package extractor

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"trademe-analyzer/config"
	"trademe-analyzer/dom"
	"trademe-analyzer/models"
)

// Fields holds the per-field extractors. Every extractor is best effort and
// returns the field's zero value when nothing usable is found.
type Fields struct {
	th   config.Thresholds
	site *url.URL
}

// NewFields creates extractors that resolve path-relative links against siteURL.
func NewFields(th config.Thresholds, siteURL string) *Fields {
	site, err := url.Parse(siteURL)
	if err != nil || site.Host == "" {
		site = nil
	}
	return &Fields{th: th, site: site}
}

// Title returns the first acceptable title candidate, or models.UnknownTitle.
func (f *Fields) Title(n dom.Node) string {
	var candidates []string

	if links := n.Query("a"); len(links) > 0 {
		candidates = append(candidates, links[0].Text())
		if t, ok := links[0].Attr("title"); ok {
			candidates = append(candidates, t)
		}
	}
	if headings := n.Query(headingSelector); len(headings) > 0 {
		candidates = append(candidates, headings[0].Text())
	}
	for _, sel := range titleMarkers {
		if m := n.Query(sel); len(m) > 0 {
			candidates = append(candidates, m[0].Text())
		}
	}
	candidates = append(candidates, f.longestFragment(n))

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if l := utf8.RuneCountInString(c); l > f.th.TitleMinLength && l < f.th.TitleMaxLength {
			return c
		}
	}
	return models.UnknownTitle
}

// longestFragment picks the longest descendant text that carries no currency symbol.
func (f *Fields) longestFragment(n dom.Node) string {
	best := ""
	bestLen := 0
	for _, frag := range n.Fragments() {
		l := utf8.RuneCountInString(frag)
		if l < f.th.FallbackTitleMin || l > f.th.FallbackTitleMax || l <= bestLen {
			continue
		}
		if strings.IndexFunc(frag, isCurrencySymbol) >= 0 {
			continue
		}
		best, bestLen = frag, l
	}
	return best
}

func isCurrencySymbol(r rune) bool {
	return unicode.Is(unicode.Sc, r)
}

// Price returns the first amount in (0, MaxPrice), or 0.
func (f *Fields) Price(n dom.Node) float64 {
	for _, sel := range priceMarkers {
		for _, m := range n.Query(sel) {
			text := m.Text()
			re := markerAmountRegexp
			if strings.Contains(text, "$") {
				re = priceRegexps[0]
			}
			if p := f.firstAmount(re, text); p > 0 {
				return p
			}
		}
	}

	text := n.Text()
	for _, re := range priceRegexps {
		if p := f.firstAmount(re, text); p > 0 {
			return p
		}
	}
	return 0
}

func (f *Fields) firstAmount(re *regexp.Regexp, text string) float64 {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if p, ok := f.parseAmount(m[1]); ok {
			return p
		}
	}
	return 0
}

func (f *Fields) parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || p <= 0 || p >= f.th.MaxPrice {
		return 0, false
	}
	return p, true
}

// PriceText returns the first literal price wording on the card.
func (f *Fields) PriceText(n dom.Node) string {
	return priceTextRegexp.FindString(n.Text())
}

// Link returns the card's first hyperlink as an absolute URL.
func (f *Fields) Link(n dom.Node, base *url.URL) string {
	if n.Tag() == "a" {
		if href, ok := n.Attr("href"); ok {
			if u := f.resolve(base, href); u != "" {
				return u
			}
		}
	}
	for _, a := range n.Query("a[href]") {
		href, _ := a.Attr("href")
		if u := f.resolve(base, href); u != "" {
			return u
		}
	}
	return ""
}

// Image returns the card's first image source as an absolute URL.
func (f *Fields) Image(n dom.Node, base *url.URL) string {
	imgs := n.Query("img")
	if len(imgs) == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src"} {
		if src, ok := imgs[0].Attr(attr); ok {
			if u := f.resolve(base, src); u != "" {
				return u
			}
		}
	}
	return ""
}

// Location returns a marked-up location, else the first known city in the text.
func (f *Fields) Location(n dom.Node) string {
	for _, sel := range locationMarkers {
		if m := n.Query(sel); len(m) > 0 {
			if t := m[0].Text(); t != "" {
				return t
			}
		}
	}
	if m := cityRegexp.FindString(n.Text()); m != "" {
		return canonicalCity(m)
	}
	return ""
}

// Seller returns the text of the first seller/member element.
func (f *Fields) Seller(n dom.Node) string {
	for _, sel := range sellerMarkers {
		if m := n.Query(sel); len(m) > 0 {
			if t := m[0].Text(); t != "" {
				return t
			}
		}
	}
	return ""
}

// Type classifies the listing from its wording.
func (f *Fields) Type(n dom.Node) models.ListingType {
	text := strings.ToLower(n.Text())
	switch {
	case strings.Contains(text, "auction"):
		return models.TypeAuction
	case strings.Contains(text, "buy now"), strings.Contains(text, "buy it now"):
		return models.TypeBuyNow
	case strings.Contains(text, "reserve"):
		return models.TypeReserve
	default:
		return models.TypeListing
	}
}

// baseFor picks the page URL when it is absolute, else the site origin.
func (f *Fields) baseFor(pageURL string) *url.URL {
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() && u.Host != "" {
		return u
	}
	return f.site
}

func (f *Fields) resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	switch u.Scheme {
	case "http", "https", "data":
		return u.String()
	}
	return ""
}
