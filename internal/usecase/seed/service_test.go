package seed

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
)

const sampleCSV = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536367,84879,ASSORTED COLOUR BIRD ORNAMENT,32,2010-12-01 08:34:00,1.69,13047,France
536368,22960,,4,2010-12-01 08:34:00,4.25,13047,France
536369,21756,BATH BUILDING BLOCK WORD,3,bad-date,5.95,13047,France
`

type mockStore struct {
	deleted  []string
	created  []string
	inserted []domain.RetailRecord
}

func (m *mockStore) DeleteAccountData(ctx context.Context, accountID string) error {
	m.deleted = append(m.deleted, accountID)
	return nil
}

func (m *mockStore) CreateAccount(ctx context.Context, accountID string) error {
	m.created = append(m.created, accountID)
	return nil
}

func (m *mockStore) InsertRecord(ctx context.Context, rec domain.RetailRecord) error {
	m.inserted = append(m.inserted, rec)
	return nil
}

type mockSeedIndex struct {
	initialized []string
	docs        []domain.SearchDocument
}

func (m *mockSeedIndex) Initialize(ctx context.Context, accountID string) error {
	m.initialized = append(m.initialized, accountID)
	return nil
}

func (m *mockSeedIndex) Insert(ctx context.Context, doc domain.SearchDocument) error {
	m.docs = append(m.docs, doc)
	return nil
}

type mockBatchEmbedder struct {
	calls int
	texts []string
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, texts...)
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(len(texts[i])), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

func TestRun_SeedsAccount(t *testing.T) {
	store := &mockStore{}
	idx := &mockSeedIndex{}
	embedder := &mockBatchEmbedder{}
	svc := New(store, idx, embedder, zap.NewNop())

	summary, err := svc.Run(context.Background(), strings.NewReader(sampleCSV), Options{
		AccountID: "main-retail-index",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Inserted != 3 {
		t.Errorf("inserted = %d, want 3", summary.Inserted)
	}
	if summary.Skipped != 2 {
		t.Errorf("skipped = %d, want 2 (empty description, bad date)", summary.Skipped)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "main-retail-index" {
		t.Errorf("deleted = %v, want one truncate of the tenant", store.deleted)
	}
	if len(store.created) != 1 {
		t.Errorf("created = %v, want one account", store.created)
	}
	if len(idx.initialized) != 1 {
		t.Errorf("initialized = %v, want once", idx.initialized)
	}

	if len(store.inserted) != 3 || len(idx.docs) != 3 {
		t.Fatalf("records = %d, docs = %d, want 3 and 3", len(store.inserted), len(idx.docs))
	}

	rec := store.inserted[0]
	if rec.ID == "" || rec.AccountID != "main-retail-index" {
		t.Errorf("record identity not set: %+v", rec)
	}
	if rec.StockCode != "85123A" || rec.Quantity != 6 || rec.Price != 2.55 {
		t.Errorf("record fields mangled: %+v", rec)
	}
	if rec.InvoiceDate.Year() != 2010 {
		t.Errorf("invoice date = %v", rec.InvoiceDate)
	}

	doc := idx.docs[0]
	if doc.ID != rec.ID {
		t.Errorf("doc id %q != record id %q", doc.ID, rec.ID)
	}
	if len(doc.Embedding) == 0 {
		t.Error("document missing embedding")
	}
	if embedder.calls != 1 {
		t.Errorf("embed calls = %d, want 1 batch", embedder.calls)
	}
}

func TestRun_MaxRowsCapsIngest(t *testing.T) {
	svc := New(&mockStore{}, &mockSeedIndex{}, &mockBatchEmbedder{}, zap.NewNop())

	summary, err := svc.Run(context.Background(), strings.NewReader(sampleCSV), Options{
		AccountID: "main-retail-index",
		MaxRows:   2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", summary.Inserted)
	}
}

func TestRun_MissingColumn(t *testing.T) {
	svc := New(&mockStore{}, &mockSeedIndex{}, &mockBatchEmbedder{}, zap.NewNop())

	_, err := svc.Run(context.Background(), strings.NewReader("Invoice,Description\n1,x\n"), Options{
		AccountID: "main-retail-index",
	})
	if err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestRun_RequiresAccountID(t *testing.T) {
	svc := New(&mockStore{}, &mockSeedIndex{}, &mockBatchEmbedder{}, zap.NewNop())

	if _, err := svc.Run(context.Background(), strings.NewReader(sampleCSV), Options{}); err == nil {
		t.Error("expected error for empty account id")
	}
}

func TestParseInvoiceDate_Layouts(t *testing.T) {
	for _, s := range []string{
		"2010-12-01 08:26:00",
		"12/1/2010 8:26",
		"2010-12-01",
	} {
		d, err := parseInvoiceDate(s)
		if err != nil {
			t.Errorf("parse %q: %v", s, err)
			continue
		}
		if d.Year() != 2010 || d.Month() != 12 {
			t.Errorf("parse %q = %v", s, d)
		}
	}
	if _, err := parseInvoiceDate("yesterday"); err == nil {
		t.Error("expected error for unrecognized date")
	}
}
