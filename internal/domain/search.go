package domain

import "time"

// Hit is a single ranked search result.
type Hit struct {
	ID       string
	Score    float64
	Document SearchDocument
}

// SearchResponse carries the hits of one index query.
type SearchResponse struct {
	Hits    []Hit
	Count   int
	Elapsed time.Duration
}

// NumericRange bounds a numeric filter. Nil endpoints are unbounded.
type NumericRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether v satisfies the range.
func (r *NumericRange) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// DateRange bounds a date filter. Nil endpoints are unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t satisfies the range.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// SearchParams are the structured parameters of a product search. Free-text
// fields contribute to the search term; every non-zero field additionally
// acts as a post-filter over the hit list (conjunction).
type SearchParams struct {
	Term        string
	Description string
	StockCode   string
	Country     string
	Invoice     string
	CustomerID  string

	PriceRange    *NumericRange
	QuantityRange *NumericRange
	DateRange     *DateRange
}

// TopSeller is one aggregated product group in the top-sellers report,
// keyed by (stock code, description).
type TopSeller struct {
	StockCode     string   `json:"stockCode"`
	Description   string   `json:"description"`
	TotalQuantity int      `json:"totalQuantity"`
	Count         int      `json:"count"`
	TotalRevenue  float64  `json:"totalRevenue"`
	AveragePrice  float64  `json:"averagePrice"`
	Countries     []string `json:"countries"`
}

// PriceStats carries the observed unit price extremes.
type PriceStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DateStats carries the observed invoice date extremes.
type DateStats struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Statistics is the dataset overview computed by a bounded linear scan.
// All figures cover at most the scan cap, not necessarily the full dataset.
type Statistics struct {
	TotalProducts    int        `json:"totalProducts"`
	UniqueCountries  []string   `json:"uniqueCountries"`
	UniqueCustomers  []string   `json:"uniqueCustomers"`
	UniqueStockCodes []string   `json:"uniqueStockCodes"`
	TotalRevenue     float64    `json:"totalRevenue"`
	TotalQuantity    int        `json:"totalQuantity"`
	PriceRange       PriceStats `json:"priceRange"`
	DateRange        DateStats  `json:"dateRange"`
}
