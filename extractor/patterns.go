package extractor

import (
	"regexp"
	"strings"
)

const amount = `(\d[\d,]*(?:\.\d{1,2})?)`

var (
	// priceRegexps are tried in order; the first in-range amount wins.
	priceRegexps = []*regexp.Regexp{
		regexp.MustCompile(`\$\s?` + amount),
		regexp.MustCompile(`(?i)reserve:?\s*\$\s?` + amount),
		regexp.MustCompile(`(?i)buy\s+now:?\s*\$\s?` + amount),
	}
	// markerAmountRegexp reads a bare amount out of a dedicated price
	// element that shows no currency symbol.
	markerAmountRegexp = regexp.MustCompile(amount)
	// priceTextRegexp is the literal price wording shown on a card.
	priceTextRegexp = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?|Reserve|Buy Now|Auction`)
	// currencyRegexp is the price signal the candidate predicate looks for.
	// The symbol and digits may sit in separate inline elements.
	currencyRegexp = regexp.MustCompile(`\$\s?\d[\d,]*`)
	// listingLinkRegexp recognizes links to a single listing page.
	listingLinkRegexp = regexp.MustCompile(`(?i)/listing`)
	// cityRegexp matches a known city as a whole word.
	cityRegexp = regexp.MustCompile(`(?i)\b(` + strings.Join(knownCities, "|") + `)\b`)
)

// Attribute markers carrying a semantic listing/card meaning.
var attributeMarkers = []string{
	`[data-testid="listing"]`,
	`[data-testid="listing-card"]`,
	`[data-listing-id]`,
	`[itemprop="itemListElement"]`,
}

// Class tokens marketplace pages are known to use for listing cards.
var classMarkers = []string{
	".listing-item",
	".tm-listing",
	".supergrid-listing",
	".o-card",
	".tm-marketplace-search-card",
	".listing-card",
}

var structuralSelectors = []string{
	"article",
	`[class*="listing"]`,
	`[class*="item"]`,
	`[class*="card"]`,
}

const linkOrHeading = "a, h1, h2, h3, h4, h5, h6"

var (
	headingSelector = "h1, h2, h3, h4, h5, h6"
	titleMarkers    = []string{
		".listing-title",
		".tm-listing-title",
		`[data-testid="listing-title"]`,
		".o-card__heading",
		`[class*="title"]`,
		`[class*="name"]`,
	}
	priceMarkers = []string{
		".price",
		".tm-price",
		`[data-testid="price"]`,
		".listing-price",
		".o-card__price",
	}
	locationMarkers = []string{
		".location",
		".tm-location",
		`[data-testid="location"]`,
		".listing-location",
	}
	sellerMarkers = []string{
		".seller",
		".tm-seller",
		`[data-testid="seller"]`,
		".listing-seller",
		".member-name",
	}
)

var knownCities = []string{
	"Auckland",
	"Wellington",
	"Christchurch",
	"Hamilton",
	"Tauranga",
	"Dunedin",
	"Palmerston North",
	"Nelson",
	"Rotorua",
	"New Plymouth",
	"Napier",
	"Hastings",
	"Whangarei",
	"Invercargill",
	"Queenstown",
}

func canonicalCity(match string) string {
	for _, c := range knownCities {
		if strings.EqualFold(c, match) {
			return c
		}
	}
	return match
}

func hasPriceSignal(text string) bool {
	return currencyRegexp.MatchString(text) ||
		strings.Contains(text, "Reserve") ||
		strings.Contains(text, "Buy Now")
}
