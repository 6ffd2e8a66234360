package models

import "math"

// PriceBucket counts priced items inside the half-open range [Min, Max).
type PriceBucket struct {
	Label string
	Min   float64
	Max   float64 // math.Inf(1) for the open-ended bucket
	Count int
}

// Contains reports whether price falls inside the bucket.
func (b PriceBucket) Contains(price float64) bool {
	return price >= b.Min && price < b.Max
}

// NewPriceBuckets returns the five fixed, empty histogram buckets in report order.
func NewPriceBuckets() []PriceBucket {
	return []PriceBucket{
		{Label: "Under $50", Min: 0, Max: 50},
		{Label: "$50 - $200", Min: 50, Max: 200},
		{Label: "$200 - $500", Min: 200, Max: 500},
		{Label: "$500 - $1,000", Min: 500, Max: 1000},
		{Label: "Over $1,000", Min: 1000, Max: math.Inf(1)},
	}
}

// Summary holds the aggregate statistics over the validated items.
type Summary struct {
	TotalItems      int
	ItemsWithPrices int
	TotalRevenue    float64
	AveragePrice    float64
	PriceBuckets    []PriceBucket
	TypeCounts      map[ListingType]int
	TopItems        []*ExtractedItem
}

// AnalysisResult is the read-only outcome of one run.
type AnalysisResult struct {
	Items   []*ExtractedItem
	Summary Summary
}

// Bucket returns the bucket with the given label, or false.
func (s *Summary) Bucket(label string) (PriceBucket, bool) {
	for _, b := range s.PriceBuckets {
		if b.Label == label {
			return b, true
		}
	}
	return PriceBucket{}, false
}
