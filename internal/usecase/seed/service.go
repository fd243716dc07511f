// Package seed bulk-loads a retail transaction CSV into one tenant:
// relational records plus search index documents with embeddings.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
)

// defaultMaxRows caps the ingest when the caller does not set a limit.
const defaultMaxRows = 200

// embedBatchSize is how many descriptions go into one embedding call.
const embedBatchSize = 64

// Store is the persistence slice the seeder needs.
type Store interface {
	DeleteAccountData(ctx context.Context, accountID string) error
	CreateAccount(ctx context.Context, accountID string) error
	InsertRecord(ctx context.Context, rec domain.RetailRecord) error
}

// Index is the search index slice the seeder needs.
type Index interface {
	Initialize(ctx context.Context, accountID string) error
	Insert(ctx context.Context, doc domain.SearchDocument) error
}

// Options configure one seeding run.
type Options struct {
	AccountID string
	MaxRows   int
}

// Summary reports what one run did.
type Summary struct {
	Inserted int
	Skipped  int
}

// Service wires the CSV parser, the embedder, the store, and the index.
type Service struct {
	store    Store
	idx      Index
	embedder domain.BatchEmbedder
	logger   *zap.Logger
}

// New creates a seeding service.
func New(store Store, idx Index, embedder domain.BatchEmbedder, logger *zap.Logger) *Service {
	return &Service{store: store, idx: idx, embedder: embedder, logger: logger}
}

// Run truncates the tenant, recreates it, and loads up to MaxRows records
// from r. Each row is written both as a relational record and as an index
// document; the index persists after every insert.
func (s *Service) Run(ctx context.Context, r io.Reader, opts Options) (Summary, error) {
	if opts.AccountID == "" {
		return Summary{}, errors.New("account id is required")
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = defaultMaxRows
	}

	records, skipped, err := parseCSV(r, opts.MaxRows, s.logger)
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		return Summary{}, errors.New("no usable rows in input")
	}

	if err := s.store.DeleteAccountData(ctx, opts.AccountID); err != nil {
		return Summary{}, fmt.Errorf("truncate account %q: %w", opts.AccountID, err)
	}
	if err := s.store.CreateAccount(ctx, opts.AccountID); err != nil {
		return Summary{}, fmt.Errorf("create account %q: %w", opts.AccountID, err)
	}
	if err := s.idx.Initialize(ctx, opts.AccountID); err != nil {
		return Summary{}, fmt.Errorf("initialize index: %w", err)
	}

	embeddings, err := s.embedAll(ctx, records)
	if err != nil {
		return Summary{}, err
	}

	for i := range records {
		rec := records[i]
		rec.ID = uuid.NewString()
		rec.AccountID = opts.AccountID
		rec.CreatedAt = time.Now().UTC()

		if err := s.store.InsertRecord(ctx, rec); err != nil {
			return Summary{}, fmt.Errorf("insert record %d: %w", i, err)
		}
		if err := s.idx.Insert(ctx, domain.DocumentFromRecord(rec, embeddings[i])); err != nil {
			return Summary{}, fmt.Errorf("index record %d: %w", i, err)
		}
	}

	s.logger.Info("Seed completed",
		zap.String("account_id", opts.AccountID),
		zap.Int("inserted", len(records)),
		zap.Int("skipped", skipped),
	)
	return Summary{Inserted: len(records), Skipped: skipped}, nil
}

func (s *Service) embedAll(ctx context.Context, records []domain.RetailRecord) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(records))
	for start := 0; start < len(records); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		texts := make([]string, 0, end-start)
		for _, rec := range records[start:end] {
			texts = append(texts, rec.Description)
		}
		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed rows %d-%d: %w", start, end-1, err)
		}
		embeddings = append(embeddings, res.Embeddings...)
	}
	return embeddings, nil
}

// csvColumns maps normalized header names to their semantic column.
var csvColumns = map[string]string{
	"invoice":     "invoice",
	"invoiceno":   "invoice",
	"stockcode":   "stockCode",
	"description": "description",
	"quantity":    "quantity",
	"invoicedate": "invoiceDate",
	"price":       "price",
	"unitprice":   "price",
	"customerid":  "customerId",
	"country":     "country",
}

func parseCSV(r io.Reader, maxRows int, logger *zap.Logger) ([]domain.RetailRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
		if semantic, ok := csvColumns[key]; ok {
			cols[semantic] = i
		}
	}
	for _, required := range []string{"invoice", "stockCode", "description", "quantity", "invoiceDate", "price", "country"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("csv header missing column %q", required)
		}
	}

	var (
		records []domain.RetailRecord
		skipped int
	)
	for len(records) < maxRows {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv row: %w", err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			skipped++
			logger.Debug("Skipping csv row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func parseRow(row []string, cols map[string]int) (domain.RetailRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	description := field("description")
	if description == "" {
		return domain.RetailRecord{}, errors.New("empty description")
	}

	quantity, err := strconv.Atoi(field("quantity"))
	if err != nil {
		return domain.RetailRecord{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return domain.RetailRecord{}, fmt.Errorf("price: %w", err)
	}
	invoiceDate, err := parseInvoiceDate(field("invoiceDate"))
	if err != nil {
		return domain.RetailRecord{}, fmt.Errorf("invoice date: %w", err)
	}

	return domain.RetailRecord{
		Invoice:     field("invoice"),
		StockCode:   field("stockCode"),
		Description: description,
		Quantity:    quantity,
		InvoiceDate: invoiceDate,
		Price:       price,
		CustomerID:  field("customerId"),
		Country:     field("country"),
	}, nil
}

// parseInvoiceDate accepts the layouts seen across online-retail exports.
func parseInvoiceDate(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"1/2/2006 15:04",
		"1/2/2006",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
