package tools

import (
	"time"

	"github.com/harborlane/retaildex/internal/domain"
)

// productRow is the flattened per-hit shape used for tabular display and
// fed back to the LLM.
type productRow struct {
	Invoice     string  `json:"invoice"`
	StockCode   string  `json:"stockCode"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
	InvoiceDate string  `json:"invoiceDate"`
	CustomerID  string  `json:"customerId"`
	Country     string  `json:"country"`
}

func projectRows(hits []domain.Hit) []productRow {
	rows := make([]productRow, 0, len(hits))
	for _, h := range hits {
		d := h.Document
		rows = append(rows, productRow{
			Invoice:     d.Invoice,
			StockCode:   d.StockCode,
			Description: d.Description,
			Quantity:    d.Quantity,
			Price:       d.Price,
			Total:       d.Revenue(),
			InvoiceDate: d.InvoiceDate.Format(time.RFC3339),
			CustomerID:  d.CustomerID,
			Country:     d.Country,
		})
	}
	return rows
}

func tableResult(res domain.SearchResponse, title string) (any, *domain.DisplayPayload, error) {
	rows := projectRows(res.Hits)
	result := map[string]any{"count": len(rows), "products": rows}
	display := &domain.DisplayPayload{
		Type:  domain.DisplayTable,
		Data:  rows,
		Title: title,
	}
	return result, display, nil
}
