package domain

import "time"

// Account is a tenant owning a set of retail records and one serialized
// search index. IndexBlob is opaque: the store round-trips the bytes the
// index adapter hands it and never inspects them.
type Account struct {
	AccountID string
	IndexBlob []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RetailRecord is one retail transaction line. Records are immutable and
// created only during bulk seeding.
type RetailRecord struct {
	ID          string
	AccountID   string
	Invoice     string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	Price       float64
	CustomerID  string
	Country     string
	CreatedAt   time.Time
}

// SearchDocument is the denormalized projection of a RetailRecord held by
// the search index, plus its derived embedding vector. Its lifecycle is tied
// 1:1 to the record at insert time; documents are never updated or deleted.
type SearchDocument struct {
	ID          string    `json:"id"`
	Invoice     string    `json:"invoice"`
	StockCode   string    `json:"stockCode"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	InvoiceDate time.Time `json:"invoiceDate"`
	Price       float64   `json:"price"`
	CustomerID  string    `json:"customerId"`
	Country     string    `json:"country"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Revenue is the line total for the document.
func (d SearchDocument) Revenue() float64 {
	return d.Price * float64(d.Quantity)
}

// DocumentFromRecord projects a RetailRecord into its index document.
func DocumentFromRecord(r RetailRecord, embedding []float32) SearchDocument {
	return SearchDocument{
		ID:          r.ID,
		Invoice:     r.Invoice,
		StockCode:   r.StockCode,
		Description: r.Description,
		Quantity:    r.Quantity,
		InvoiceDate: r.InvoiceDate,
		Price:       r.Price,
		CustomerID:  r.CustomerID,
		Country:     r.Country,
		Embedding:   embedding,
	}
}
