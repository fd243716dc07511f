package tools

import (
	"encoding/json"

	"github.com/harborlane/retaildex/internal/domain"
)

// Definitions returns the tool schemas advertised to the LLM, one per Op
// variant.
func Definitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolSearchProducts,
			Description: "Search retail products with a free-text term and optional structured filters (price, quantity, date, country, stock code, customer, invoice).",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"term":        {"type": "string", "description": "Free-text search term"},
					"description": {"type": "string", "description": "Product description to match"},
					"stockCode":   {"type": "string", "description": "Stock code to match"},
					"country":     {"type": "string", "description": "Country to match"},
					"invoice":     {"type": "string", "description": "Invoice number to match"},
					"customerId":  {"type": "string", "description": "Customer id to match"},
					"priceMin":    {"type": "number", "description": "Minimum unit price"},
					"priceMax":    {"type": "number", "description": "Maximum unit price"},
					"quantityMin": {"type": "number", "description": "Minimum quantity"},
					"quantityMax": {"type": "number", "description": "Maximum quantity"},
					"dateFrom":    {"type": "string", "description": "Earliest invoice date, YYYY-MM-DD"},
					"dateTo":      {"type": "string", "description": "Latest invoice date, YYYY-MM-DD"}
				}
			}`),
		},
		{
			Name:        ToolProductsByCountry,
			Description: "Get products sold to a specific country.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"country": {"type": "string", "description": "Country name, e.g. United Kingdom"}
				},
				"required": ["country"]
			}`),
		},
		{
			Name:        ToolPriceRangeProducts,
			Description: "Get products whose unit price falls inside a range.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"priceMin": {"type": "number", "description": "Minimum unit price"},
					"priceMax": {"type": "number", "description": "Maximum unit price"}
				},
				"required": ["priceMin", "priceMax"]
			}`),
		},
		{
			Name:        ToolTopSellingProducts,
			Description: "Get the best-selling products ranked by total quantity sold.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "description": "Maximum number of product groups to return (default 10)"}
				}
			}`),
		},
		{
			Name:        ToolProductsByDateRange,
			Description: "Get products invoiced between two dates.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"dateFrom": {"type": "string", "description": "Start date, YYYY-MM-DD"},
					"dateTo":   {"type": "string", "description": "End date, YYYY-MM-DD"}
				},
				"required": ["dateFrom", "dateTo"]
			}`),
		},
		{
			Name:        ToolVectorSearch,
			Description: "Semantic product search combining keyword matching and embedding similarity. Use for vague or conceptual queries.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"term": {"type": "string", "description": "Natural-language search query"}
				},
				"required": ["term"]
			}`),
		},
	}
}
