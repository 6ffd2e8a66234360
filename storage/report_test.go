package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trademe-analyzer/models"
)

func fixedSerializer(withBOM bool) *Serializer {
	s := NewSerializer(withBOM)
	s.Location = time.UTC
	s.Now = func() time.Time { return time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC) }
	return s
}

func sampleResult() *models.AnalysisResult {
	at := time.Date(2026, 10, 14, 2, 0, 0, 0, time.UTC)
	items := []*models.ExtractedItem{
		{
			Rank: 1, Title: `Oak "farmhouse" table, seats 8`, Price: 1250, PriceText: "$1,250",
			Type: models.TypeAuction, Location: "Auckland",
			Link: "https://www.trademe.co.nz/a/listing/42", ExtractedAt: at,
		},
		{Rank: 2, Title: "Lamp", PriceText: "Reserve", Type: models.TypeReserve, ExtractedAt: at},
	}
	buckets := models.NewPriceBuckets()
	buckets[4].Count = 1
	return &models.AnalysisResult{
		Items: items,
		Summary: models.Summary{
			TotalItems:      2,
			ItemsWithPrices: 1,
			TotalRevenue:    1250,
			AveragePrice:    1250,
			PriceBuckets:    buckets,
			TypeCounts:      map[models.ListingType]int{models.TypeAuction: 1, models.TypeReserve: 1},
			TopItems:        items,
		},
	}
}

func TestSerializerFullReport(t *testing.T) {
	out, err := fixedSerializer(false).Render(sampleResult())
	require.NoError(t, err)

	want := strings.Join([]string{
		"=== TRADEME SALES ANALYSIS SUMMARY ===",
		`Generated At:,"10/14/2026, 3:04:05 PM"`,
		"Total Items Found:,2",
		"Items With Prices:,1",
		`Total Revenue:,"$1,250"`,
		"Average Price:,$1250.00",
		"",
		"=== ITEMS DETAILS ===",
		"Rank,Title,Price ($),Price Text,Type,Location,Seller,URL,Extracted At",
		`1,"Oak ""farmhouse"" table, seats 8",1250,"$1,250",Auction,Auckland,N/A,https://www.trademe.co.nz/a/listing/42,2026-10-14T02:00:00Z`,
		"2,Lamp,0,Reserve,Reserve,N/A,N/A,N/A,2026-10-14T02:00:00Z",
		"",
		"=== PRICE DISTRIBUTION ===",
		"Price Range,Count,Percentage",
		"Under $50,0,0.0%",
		"$50 - $200,0,0.0%",
		"$200 - $500,0,0.0%",
		`"$500 - $1,000",0,0.0%`,
		`"Over $1,000",1,100.0%`,
		"",
		"=== LISTING TYPE DISTRIBUTION ===",
		"Listing Type,Count,Percentage",
		"Auction,1,50.0%",
		"Reserve,1,50.0%",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestSerializerEmptyResult(t *testing.T) {
	empty := &models.AnalysisResult{
		Summary: models.Summary{
			PriceBuckets: models.NewPriceBuckets(),
			TypeCounts:   map[models.ListingType]int{},
		},
	}
	out, err := fixedSerializer(false).Render(empty)
	require.NoError(t, err)

	assert.Contains(t, out, "=== ITEMS DETAILS ===\nno items data available\n")
	assert.Contains(t, out, "Under $50,0,0%\n")
	assert.Contains(t, out, `"Over $1,000",0,0%`)
	assert.Contains(t, out, "=== LISTING TYPE DISTRIBUTION ===\nno type data available\n")
	assert.Contains(t, out, "Average Price:,$0.00\n")
	assert.NotContains(t, out, "NaN")
	assert.NotContains(t, out, "Inf")
}

func TestSerializerBOM(t *testing.T) {
	out, err := fixedSerializer(true).Render(sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeff"+BannerSummary))

	out, err = fixedSerializer(false).Render(sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, BannerSummary))
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), tt.in)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, v := range []string{`a,"b"`, "plain", `""`, "x\ny,z", `"quoted"`} {
		got, err := Unescape(Escape(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "0%", Percentage(0, 0))
	assert.Equal(t, "33.3%", Percentage(1, 3))
	assert.Equal(t, "100.0%", Percentage(4, 4))
}
