package tools

import (
	"context"
	"time"

	"github.com/harborlane/retaildex/internal/domain"
)

// Index is the slice of the search index adapter the executor drives.
// The adapter must be initialized before it is handed to the executor.
type Index interface {
	SearchProducts(ctx context.Context, params domain.SearchParams) (domain.SearchResponse, error)
	ProductsByCountry(ctx context.Context, country string) (domain.SearchResponse, error)
	ProductsByPriceRange(ctx context.Context, min, max float64) (domain.SearchResponse, error)
	ProductsByDateRange(ctx context.Context, start, end time.Time) (domain.SearchResponse, error)
	TopSellingProducts(ctx context.Context, limit int) ([]domain.TopSeller, error)
	VectorSearch(ctx context.Context, term string) (domain.SearchResponse, error)
}
