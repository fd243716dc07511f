package index

import (
	"testing"
	"time"

	"github.com/harborlane/retaildex/internal/domain"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	s := snapshot{
		Version: snapshotVersion,
		Dims:    3,
		Documents: []domain.SearchDocument{
			{
				ID:          "doc-1",
				Invoice:     "536365",
				StockCode:   "85123A",
				Description: "white hanging heart t-light holder",
				Quantity:    6,
				InvoiceDate: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC),
				Price:       2.55,
				CustomerID:  "17850",
				Country:     "United Kingdom",
				Embedding:   []float32{0.1, 0.2, 0.3},
			},
		},
	}

	blob, err := encodeSnapshot(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := decodeSnapshot(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Dims != 3 || len(got.Documents) != 1 {
		t.Fatalf("decoded = %+v", got)
	}
	doc := got.Documents[0]
	if doc.StockCode != "85123A" || doc.Quantity != 6 || len(doc.Embedding) != 3 {
		t.Errorf("document mangled: %+v", doc)
	}
	if !doc.InvoiceDate.Equal(s.Documents[0].InvoiceDate) {
		t.Errorf("invoice date = %v, want %v", doc.InvoiceDate, s.Documents[0].InvoiceDate)
	}
}

func TestSnapshot_UnsupportedVersion(t *testing.T) {
	blob, err := encodeSnapshot(snapshot{Version: 99})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := decodeSnapshot(blob); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestSnapshot_GarbageBytes(t *testing.T) {
	if _, err := decodeSnapshot([]byte("not json")); err == nil {
		t.Error("expected error for malformed blob")
	}
}
