package extractor

import (
	"net/url"
	"strconv"
	"strings"

	"trademe-analyzer/dom"
)

// PageType is a coarse classification of a marketplace URL.
type PageType string

const (
	PageHome     PageType = "home"
	PageSearch   PageType = "search"
	PageCategory PageType = "category"
	PageListing  PageType = "listing"
	PageOther    PageType = "other"
)

// ClassifyPage reports whether pageURL is on the marketplace site and what
// kind of page it is.
func ClassifyPage(pageURL, siteURL string) (bool, PageType) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return false, PageOther
	}
	onSite := false
	if site, err := url.Parse(siteURL); err == nil && site.Host != "" {
		onSite = sameSite(u.Hostname(), site.Hostname())
	}

	path := strings.ToLower(strings.TrimRight(u.Path, "/"))
	switch {
	case path == "":
		return onSite, PageHome
	case strings.Contains(path, "/listing/"), strings.Contains(path, "/listing.aspx"):
		return onSite, PageListing
	case strings.Contains(path, "search"), u.Query().Get("search_string") != "":
		return onSite, PageSearch
	case strings.HasPrefix(path, "/a/marketplace"), strings.HasPrefix(path, "/browse"),
		strings.HasPrefix(path, "/marketplace"):
		return onSite, PageCategory
	default:
		return onSite, PageOther
	}
}

func sameSite(host, site string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	site = strings.TrimPrefix(strings.ToLower(site), "www.")
	return host == site || strings.HasSuffix(host, "."+site)
}

// PageContext is the diagnostic snapshot attached to locate failures.
type PageContext struct {
	URL           string
	Title         string
	OnMarketplace bool
	PageType      PageType
	ElementCount  int
	Strategies    []StrategyCount
}

// NewPageContext gathers diagnostics for doc.
func NewPageContext(doc dom.Document, siteURL string, tried []StrategyCount) *PageContext {
	onSite, kind := ClassifyPage(doc.URL(), siteURL)
	return &PageContext{
		URL:           doc.URL(),
		Title:         doc.Title(),
		OnMarketplace: onSite,
		PageType:      kind,
		ElementCount:  doc.ElementCount(),
		Strategies:    tried,
	}
}

// Fields flattens the context for logs and error events.
func (p *PageContext) Fields() map[string]string {
	f := map[string]string{
		"url":            p.URL,
		"title":          p.Title,
		"on_marketplace": strconv.FormatBool(p.OnMarketplace),
		"page_type":      string(p.PageType),
		"element_count":  strconv.Itoa(p.ElementCount),
	}
	for _, s := range p.Strategies {
		f["candidates."+s.Strategy] = strconv.Itoa(s.Matched) + "/" + strconv.Itoa(s.Validated)
	}
	return f
}
