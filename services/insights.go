package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

// DefaultTopItems is the length of the summary's top items list.
const DefaultTopItems = 10

// InsightService aggregates validated items into an AnalysisResult.
type InsightService struct {
	logger *utils.Logger
	topN   int
	lang   language.Tag
}

// NewInsightService creates an aggregator keeping the topN highest items.
func NewInsightService(logger *utils.Logger, topN int) *InsightService {
	if topN <= 0 {
		topN = DefaultTopItems
	}
	return &InsightService{logger: logger, topN: topN, lang: language.English}
}

// Generate sorts the items and computes the summary. The input slice is not
// modified; the same multiset of items always yields the same result.
func (s *InsightService) Generate(items []*models.ExtractedItem) *models.AnalysisResult {
	sorted := make([]*models.ExtractedItem, 0, len(items))
	for _, it := range items {
		if it != nil {
			sorted = append(sorted, it)
		}
	}
	SortItems(sorted, s.lang)

	summary := models.Summary{
		TotalItems:   len(sorted),
		PriceBuckets: models.NewPriceBuckets(),
		TypeCounts:   make(map[models.ListingType]int),
	}

	for _, it := range sorted {
		summary.TypeCounts[it.Type]++
		if !it.HasPrice() {
			continue
		}
		summary.ItemsWithPrices++
		summary.TotalRevenue += it.Price
		for i := range summary.PriceBuckets {
			if summary.PriceBuckets[i].Contains(it.Price) {
				summary.PriceBuckets[i].Count++
				break
			}
		}
	}

	if summary.ItemsWithPrices > 0 {
		summary.AveragePrice = summary.TotalRevenue / float64(summary.ItemsWithPrices)
	}

	top := s.topN
	if len(sorted) < top {
		top = len(sorted)
	}
	summary.TopItems = sorted[:top:top]

	s.logger.Debug("[insights] %d items, %d priced, revenue %.2f",
		summary.TotalItems, summary.ItemsWithPrices, summary.TotalRevenue)

	return &models.AnalysisResult{Items: sorted, Summary: summary}
}

// SortItems orders items by price descending, unpriced items last, ties
// broken by locale-aware title order and then by the remaining fields so the
// order never depends on input order.
func SortItems(items []*models.ExtractedItem, lang language.Tag) {
	c := collate.New(lang)
	sort.SliceStable(items, func(i, j int) bool {
		return compareItems(c, items[i], items[j]) < 0
	})
}

func compareItems(c *collate.Collator, a, b *models.ExtractedItem) int {
	ap, bp := a.HasPrice(), b.HasPrice()
	switch {
	case ap && !bp:
		return -1
	case !ap && bp:
		return 1
	case ap && bp && a.Price > b.Price:
		return -1
	case ap && bp && a.Price < b.Price:
		return 1
	}

	if r := c.CompareString(a.Title, b.Title); r != 0 {
		return r
	}
	for _, pair := range [][2]string{
		{a.Title, b.Title},
		{a.Link, b.Link},
		{a.PriceText, b.PriceText},
		{string(a.Type), string(b.Type)},
		{a.Location, b.Location},
		{a.Seller, b.Seller},
		{a.Image, b.Image},
	} {
		if r := strings.Compare(pair[0], pair[1]); r != 0 {
			return r
		}
	}
	return 0
}

// Print writes a console summary of the result.
func (s *InsightService) Print(w io.Writer, r *models.AnalysisResult) {
	p := message.NewPrinter(s.lang)
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	sum := r.Summary

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 TRADEME SALES ANALYSIS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Items found       : \033[1m%d\033[0m\n", sum.TotalItems)
	fmt.Fprintf(w, "  Items with prices : \033[1m%d\033[0m\n", sum.ItemsWithPrices)
	if sum.ItemsWithPrices > 0 {
		fmt.Fprintf(w, "  Total revenue     : \033[1;32m%s\033[0m\n", p.Sprintf("$%.2f", sum.TotalRevenue))
		fmt.Fprintf(w, "  Average price     : \033[1;32m%s\033[0m\n", p.Sprintf("$%.2f", sum.AveragePrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top 5 Items\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(sum.TopItems) == 0 {
		fmt.Fprintf(w, "  No items found\n")
	}
	for i, it := range sum.TopItems {
		if i == 5 {
			break
		}
		price := it.PriceText
		if it.HasPrice() {
			price = p.Sprintf("$%.2f", it.Price)
		}
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%s\033[0m\n", i+1, truncate(it.Title, 38), price)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listing Types\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, t := range models.ListingTypes {
		if n := sum.TypeCounts[t]; n > 0 {
			fmt.Fprintf(w, "  %-12s %s (%d)\n", t.Label(), strings.Repeat("█", n), n)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
