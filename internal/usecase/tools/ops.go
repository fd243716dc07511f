// Package tools translates LLM tool calls into search index invocations.
//
// Tool names arrive as strings on the wire; ParseCall is the single place
// where a name and its raw arguments become a typed operation. Everything
// past that boundary dispatches on the Op variant, not on strings.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborlane/retaildex/internal/domain"
)

// Tool names as exposed to the LLM.
const (
	ToolSearchProducts      = "search_products"
	ToolProductsByCountry   = "get_products_by_country"
	ToolPriceRangeProducts  = "get_price_range_products"
	ToolTopSellingProducts  = "get_top_selling_products"
	ToolProductsByDateRange = "get_products_by_date_range"
	ToolVectorSearch        = "vector_search"
)

// Op is one recognized tool operation carrying its decoded parameters.
// The set of variants is closed; new tools add a variant and a ParseCall arm.
type Op interface {
	Name() string
	execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error)
}

// Call is a parsed tool invocation ready for execution.
type Call struct {
	ID string
	Op Op
}

// ParseCall decodes a raw tool call into its typed operation.
// domain.ErrUnknownTool for unrecognized names.
func ParseCall(req domain.ToolCallRequest) (Call, error) {
	op, err := parseOp(req.Name, req.Arguments)
	if err != nil {
		return Call{}, err
	}
	return Call{ID: req.ID, Op: op}, nil
}

func parseOp(name string, args json.RawMessage) (Op, error) {
	switch name {
	case ToolSearchProducts:
		return parseSearchProducts(args)
	case ToolProductsByCountry:
		return parseProductsByCountry(args)
	case ToolPriceRangeProducts:
		return parsePriceRange(args)
	case ToolTopSellingProducts:
		return parseTopSelling(args)
	case ToolProductsByDateRange:
		return parseDateRange(args)
	case ToolVectorSearch:
		return parseVectorSearch(args)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTool, name)
	}
}

// SearchProductsOp runs a parameterized product search with post-filters.
type SearchProductsOp struct {
	Params domain.SearchParams
}

func (SearchProductsOp) Name() string { return ToolSearchProducts }

func (op SearchProductsOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	res, err := idx.SearchProducts(ctx, op.Params)
	if err != nil {
		return nil, nil, err
	}
	return tableResult(res, "Product Search Results")
}

// ProductsByCountryOp lists products sold to one country.
type ProductsByCountryOp struct {
	Country string
}

func (ProductsByCountryOp) Name() string { return ToolProductsByCountry }

func (op ProductsByCountryOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	res, err := idx.ProductsByCountry(ctx, op.Country)
	if err != nil {
		return nil, nil, err
	}
	return tableResult(res, fmt.Sprintf("Products from %s", op.Country))
}

// PriceRangeOp lists products with unit price inside a closed interval.
type PriceRangeOp struct {
	Min float64
	Max float64
}

func (PriceRangeOp) Name() string { return ToolPriceRangeProducts }

func (op PriceRangeOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	res, err := idx.ProductsByPriceRange(ctx, op.Min, op.Max)
	if err != nil {
		return nil, nil, err
	}
	return tableResult(res, fmt.Sprintf("Products priced %.2f to %.2f", op.Min, op.Max))
}

// TopSellingOp aggregates the best-selling product groups.
type TopSellingOp struct {
	Limit int
}

func (TopSellingOp) Name() string { return ToolTopSellingProducts }

func (op TopSellingOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	sellers, err := idx.TopSellingProducts(ctx, op.Limit)
	if err != nil {
		return nil, nil, err
	}
	result := map[string]any{"count": len(sellers), "products": sellers}
	display := &domain.DisplayPayload{
		Type:  domain.DisplayTable,
		Data:  sellers,
		Title: "Top Selling Products",
	}
	return result, display, nil
}

// DateRangeOp lists products invoiced inside a date interval.
type DateRangeOp struct {
	From time.Time
	To   time.Time
}

func (DateRangeOp) Name() string { return ToolProductsByDateRange }

func (op DateRangeOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	res, err := idx.ProductsByDateRange(ctx, op.From, op.To)
	if err != nil {
		return nil, nil, err
	}
	return tableResult(res, "Products by Date Range")
}

// VectorSearchOp runs a hybrid keyword plus embedding-similarity search.
type VectorSearchOp struct {
	Term string
}

func (VectorSearchOp) Name() string { return ToolVectorSearch }

func (op VectorSearchOp) execute(ctx context.Context, idx Index) (any, *domain.DisplayPayload, error) {
	res, err := idx.VectorSearch(ctx, op.Term)
	if err != nil {
		return nil, nil, err
	}
	return tableResult(res, "Semantic Search Results")
}

type searchProductsArgs struct {
	Term        string   `json:"term"`
	Description string   `json:"description"`
	StockCode   string   `json:"stockCode"`
	Country     string   `json:"country"`
	Invoice     string   `json:"invoice"`
	CustomerID  string   `json:"customerId"`
	PriceMin    *float64 `json:"priceMin"`
	PriceMax    *float64 `json:"priceMax"`
	QuantityMin *float64 `json:"quantityMin"`
	QuantityMax *float64 `json:"quantityMax"`
	DateFrom    string   `json:"dateFrom"`
	DateTo      string   `json:"dateTo"`
}

func parseSearchProducts(args json.RawMessage) (Op, error) {
	var a searchProductsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	params := domain.SearchParams{
		Term:        a.Term,
		Description: a.Description,
		StockCode:   a.StockCode,
		Country:     a.Country,
		Invoice:     a.Invoice,
		CustomerID:  a.CustomerID,
	}
	if a.PriceMin != nil || a.PriceMax != nil {
		params.PriceRange = &domain.NumericRange{Min: a.PriceMin, Max: a.PriceMax}
	}
	if a.QuantityMin != nil || a.QuantityMax != nil {
		params.QuantityRange = &domain.NumericRange{Min: a.QuantityMin, Max: a.QuantityMax}
	}
	dateRange, err := parseDateBounds(a.DateFrom, a.DateTo)
	if err != nil {
		return nil, err
	}
	params.DateRange = dateRange

	return SearchProductsOp{Params: params}, nil
}

func parseProductsByCountry(args json.RawMessage) (Op, error) {
	var a struct {
		Country string `json:"country"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Country == "" {
		return nil, fmt.Errorf("%s: country is required", ToolProductsByCountry)
	}
	return ProductsByCountryOp{Country: a.Country}, nil
}

func parsePriceRange(args json.RawMessage) (Op, error) {
	var a struct {
		PriceMin *float64 `json:"priceMin"`
		PriceMax *float64 `json:"priceMax"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.PriceMin == nil || a.PriceMax == nil {
		return nil, fmt.Errorf("%s: priceMin and priceMax are required", ToolPriceRangeProducts)
	}
	if *a.PriceMin > *a.PriceMax {
		return nil, fmt.Errorf("%s: priceMin exceeds priceMax", ToolPriceRangeProducts)
	}
	return PriceRangeOp{Min: *a.PriceMin, Max: *a.PriceMax}, nil
}

func parseTopSelling(args json.RawMessage) (Op, error) {
	var a struct {
		Limit int `json:"limit"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return TopSellingOp{Limit: a.Limit}, nil
}

func parseDateRange(args json.RawMessage) (Op, error) {
	var a struct {
		DateFrom string `json:"dateFrom"`
		DateTo   string `json:"dateTo"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.DateFrom == "" || a.DateTo == "" {
		return nil, fmt.Errorf("%s: dateFrom and dateTo are required", ToolProductsByDateRange)
	}
	from, err := parseDate(a.DateFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(a.DateTo)
	if err != nil {
		return nil, err
	}
	return DateRangeOp{From: from, To: to}, nil
}

func parseVectorSearch(args json.RawMessage) (Op, error) {
	var a struct {
		Term string `json:"term"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Term == "" {
		return nil, fmt.Errorf("%s: term is required", ToolVectorSearch)
	}
	return VectorSearchOp{Term: a.Term}, nil
}

func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("decode tool arguments: %w", err)
	}
	return nil
}

func parseDateBounds(from, to string) (*domain.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	r := &domain.DateRange{}
	if from != "" {
		t, err := parseDate(from)
		if err != nil {
			return nil, err
		}
		r.Start = &t
	}
	if to != "" {
		t, err := parseDate(to)
		if err != nil {
			return nil, err
		}
		r.End = &t
	}
	return r, nil
}

// parseDate accepts both plain dates and full timestamps, which LLMs emit
// interchangeably.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}
