package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"trademe-analyzer/models"
)

// Section banners, in output order.
const (
	BannerSummary = "=== TRADEME SALES ANALYSIS SUMMARY ==="
	BannerItems   = "=== ITEMS DETAILS ==="
	BannerPrices  = "=== PRICE DISTRIBUTION ==="
	BannerTypes   = "=== LISTING TYPE DISTRIBUTION ==="
)

// Rows printed in place of an empty section.
const (
	NoItemsRow  = "no items data available"
	NoPricesRow = "no price data available"
	NoTypesRow  = "no type data available"
)

const bom = "\ufeff"

// ItemColumns is the header of the item table.
var ItemColumns = []string{"Rank", "Title", "Price ($)", "Price Text", "Type", "Location", "Seller", "URL", "Extracted At"}

var (
	priceColumns = []string{"Price Range", "Count", "Percentage"}
	typeColumns  = []string{"Listing Type", "Count", "Percentage"}
)

// Serializer renders an AnalysisResult as a sectioned, comma separated report.
type Serializer struct {
	BOM      bool
	Location *time.Location
	Now      func() time.Time
	printer  *message.Printer
}

// NewSerializer creates a Serializer formatting for English locales.
func NewSerializer(withBOM bool) *Serializer {
	return &Serializer{
		BOM:      withBOM,
		Location: time.Local,
		Now:      time.Now,
		printer:  message.NewPrinter(language.English),
	}
}

// Render returns the report as a string.
func (s *Serializer) Render(r *models.AnalysisResult) (string, error) {
	var b strings.Builder
	if err := s.Write(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write streams the report to w.
func (s *Serializer) Write(w io.Writer, r *models.AnalysisResult) error {
	bw := bufio.NewWriter(w)
	row := func(cells ...string) {
		bw.WriteString(strings.Join(cells, ","))
		bw.WriteByte('\n')
	}

	if s.BOM {
		bw.WriteString(bom)
	}

	sum := r.Summary
	row(BannerSummary)
	row("Generated At:", Escape(s.now().Format("1/2/2006, 3:04:05 PM")))
	row("Total Items Found:", strconv.Itoa(sum.TotalItems))
	row("Items With Prices:", strconv.Itoa(sum.ItemsWithPrices))
	row("Total Revenue:", Escape("$"+s.grouped(sum.TotalRevenue)))
	row("Average Price:", Escape(fmt.Sprintf("$%.2f", sum.AveragePrice)))
	row()

	row(BannerItems)
	if len(r.Items) == 0 {
		row(NoItemsRow)
	} else {
		row(escapeAll(ItemColumns)...)
		for _, it := range r.Items {
			row(
				strconv.Itoa(it.Rank),
				Escape(it.Title),
				strconv.FormatFloat(it.Price, 'f', -1, 64),
				Escape(it.PriceText),
				Escape(it.Type.Label()),
				Escape(orNA(it.Location)),
				Escape(orNA(it.Seller)),
				Escape(orNA(it.Link)),
				Escape(it.ExtractedAt.UTC().Format(time.RFC3339)),
			)
		}
	}
	row()

	row(BannerPrices)
	if len(sum.PriceBuckets) == 0 {
		row(NoPricesRow)
	} else {
		row(priceColumns...)
		for _, b := range sum.PriceBuckets {
			row(Escape(b.Label), strconv.Itoa(b.Count), Percentage(b.Count, sum.ItemsWithPrices))
		}
	}
	row()

	row(BannerTypes)
	if len(sum.TypeCounts) == 0 {
		row(NoTypesRow)
	} else {
		row(typeColumns...)
		for _, t := range models.ListingTypes {
			n, ok := sum.TypeCounts[t]
			if !ok {
				continue
			}
			row(Escape(t.Label()), strconv.Itoa(n), Percentage(n, sum.TotalItems))
		}
	}

	return bw.Flush()
}

func (s *Serializer) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// grouped formats an amount with digit grouping and at most two decimals.
func (s *Serializer) grouped(v float64) string {
	p := s.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return p.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// Percentage formats count/total with one decimal, or "0%" when total is zero.
func Percentage(count, total int) string {
	if total <= 0 {
		return "0%"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
}

// Escape quotes a value that contains a comma, double quote or newline,
// doubling any inner quotes.
func Escape(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// Unescape reverses Escape for a single field.
func Unescape(field string) (string, error) {
	if !strings.HasPrefix(field, `"`) {
		return field, nil
	}
	rd := csv.NewReader(strings.NewReader(field))
	rd.FieldsPerRecord = 1
	rec, err := rd.Read()
	if err != nil {
		return "", fmt.Errorf("report: unescape %q: %w", field, err)
	}
	return rec[0], nil
}

func escapeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Escape(c)
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
