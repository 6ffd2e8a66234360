package models

import "time"

// ListingType classifies how a listing is being sold.
type ListingType string

const (
	TypeAuction ListingType = "Auction"
	TypeBuyNow  ListingType = "BuyNow"
	TypeReserve ListingType = "Reserve"
	TypeListing ListingType = "Listing"
)

// ListingTypes lists every ListingType in report order.
var ListingTypes = []ListingType{TypeAuction, TypeBuyNow, TypeReserve, TypeListing}

// Label is the human-facing name used in reports.
func (t ListingType) Label() string {
	if t == TypeBuyNow {
		return "Buy Now"
	}
	return string(t)
}

// UnknownTitle is the sentinel the title extractor returns when nothing fits.
const UnknownTitle = "Unknown Item"

// ExtractedItem is one listing pulled from a candidate node.
// Items are built once by the record builder and never modified afterwards.
type ExtractedItem struct {
	Rank        int
	Title       string
	Price       float64 // 0 when no price could be resolved
	PriceText   string
	Link        string // absolute URL or empty
	Image       string // absolute URL or empty
	Location    string
	Seller      string
	Type        ListingType
	ExtractedAt time.Time
}

// HasPrice reports whether a numeric price was resolved.
func (i *ExtractedItem) HasPrice() bool {
	return i.Price > 0
}
