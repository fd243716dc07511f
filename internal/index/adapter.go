// Package index implements the per-account search index: bleve handles
// lexical matching and ranking, the adapter keeps the source documents for
// field access and the vector similarity leg, and the whole index round-trips
// through an opaque snapshot blob stored on the account row.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	bleveMapping "github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
)

// defaultSearchSize is the hit cap of a plain keyword search.
const defaultSearchSize = 10

// defaultTopSellers is used when the caller asks for a non-positive limit.
const defaultTopSellers = 10

// AccountStore is the slice of the persistence facade the adapter needs.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
	SaveIndexBlob(ctx context.Context, accountID string, blob []byte) error
}

// Caps bound the adapter's retrieval and scan sizes. Aggregations cover at
// most the configured cap, not the full dataset.
type Caps struct {
	SearchLimit    int
	TopSellerScan  int
	StatisticsScan int
	HybridLimit    int
	Similarity     float64
}

// Adapter owns one account's search index. It must be initialized once via
// Initialize before any query; construction does not touch storage.
//
// Reads run concurrently under a read lock; Insert takes the write lock and
// re-persists the full snapshot before returning.
type Adapter struct {
	accounts AccountStore
	embedder domain.Embedder
	caps     Caps
	dims     int
	logger   *zap.Logger

	mu        sync.RWMutex
	idx       bleve.Index
	docs      map[string]domain.SearchDocument
	accountID string
}

// New creates an uninitialized adapter. dims is the embedding width recorded
// in persisted snapshots.
func New(
	accounts AccountStore,
	embedder domain.Embedder,
	caps Caps,
	dims int,
	logger *zap.Logger,
) *Adapter {
	return &Adapter{
		accounts: accounts,
		embedder: embedder,
		caps:     caps,
		dims:     dims,
		logger:   logger,
	}
}

// Initialize loads the account row and either restores the index from its
// persisted snapshot or creates an empty index and persists the empty
// snapshot immediately. domain.ErrAccountNotFound if the account is absent.
func (a *Adapter) Initialize(ctx context.Context, accountID string) error {
	account, err := a.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %q: %w", accountID, err)
	}

	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	docs := make(map[string]domain.SearchDocument)

	if len(account.IndexBlob) > 0 {
		snap, err := decodeSnapshot(account.IndexBlob)
		if err != nil {
			return fmt.Errorf("restore index for %q: %w", accountID, err)
		}
		batch := idx.NewBatch()
		for _, doc := range snap.Documents {
			if err := batch.Index(doc.ID, indexFields(doc)); err != nil {
				return fmt.Errorf("restore document %q: %w", doc.ID, err)
			}
			docs[doc.ID] = doc
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("restore index batch: %w", err)
		}
		a.logger.Info("Search index restored",
			zap.String("account_id", accountID),
			zap.Int("documents", len(docs)),
		)
	}

	a.mu.Lock()
	a.idx = idx
	a.docs = docs
	a.accountID = accountID
	a.mu.Unlock()

	if len(account.IndexBlob) == 0 {
		if err := a.SaveIndex(ctx); err != nil {
			return fmt.Errorf("persist empty index: %w", err)
		}
		a.logger.Info("Search index created", zap.String("account_id", accountID))
	}

	return nil
}

// Search runs a plain keyword query with engine-default ranking.
func (a *Adapter) Search(ctx context.Context, term string) (domain.SearchResponse, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.keywordSearch(ctx, term, defaultSearchSize)
}

// VectorSearch embeds the term and runs a hybrid query: a keyword leg and a
// cosine-similarity leg over the stored embeddings, fused via Reciprocal
// Rank Fusion and capped at the hybrid limit.
func (a *Adapter) VectorSearch(ctx context.Context, term string) (domain.SearchResponse, error) {
	started := time.Now()

	emb, err := a.embedder.Embed(ctx, term)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("embed query: %w", err)
	}
	if len(emb.Embedding) == 0 {
		return domain.SearchResponse{}, fmt.Errorf(
			"%w: provider returned no vector for query", domain.ErrEmbeddingProviderError,
		)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	keyword, err := a.keywordSearch(ctx, term, a.caps.HybridLimit)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	vector := a.cosineScan(emb.Embedding, a.caps.HybridLimit)

	fused := fuseRRF(vector, keyword.Hits, a.caps.HybridLimit)
	return domain.SearchResponse{
		Hits:    fused,
		Count:   len(fused),
		Elapsed: time.Since(started),
	}, nil
}

// SearchProducts concatenates the free-text parameters into one search term
// (match-all when empty), retrieves up to the search cap, then applies every
// supplied structured filter as an in-memory predicate. A hit is retained
// iff it satisfies all supplied filters.
func (a *Adapter) SearchProducts(ctx context.Context, params domain.SearchParams) (domain.SearchResponse, error) {
	term := joinTerms(
		params.Term,
		params.Description,
		params.StockCode,
		params.Country,
		params.Invoice,
		params.CustomerID,
	)

	a.mu.RLock()
	defer a.mu.RUnlock()

	res, err := a.keywordSearch(ctx, term, a.caps.SearchLimit)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	hits := res.Hits
	hits = filterHits(hits, func(d domain.SearchDocument) bool {
		return params.PriceRange.Contains(d.Price)
	})
	hits = filterHits(hits, func(d domain.SearchDocument) bool {
		return params.QuantityRange.Contains(float64(d.Quantity))
	})
	hits = filterHits(hits, func(d domain.SearchDocument) bool {
		return params.DateRange.Contains(d.InvoiceDate)
	})
	if params.Country != "" {
		hits = filterHits(hits, func(d domain.SearchDocument) bool {
			return containsFold(d.Country, params.Country)
		})
	}
	if params.StockCode != "" {
		hits = filterHits(hits, func(d domain.SearchDocument) bool {
			return containsFold(d.StockCode, params.StockCode)
		})
	}
	if params.CustomerID != "" {
		hits = filterHits(hits, func(d domain.SearchDocument) bool {
			return containsFold(d.CustomerID, params.CustomerID)
		})
	}
	if params.Invoice != "" {
		hits = filterHits(hits, func(d domain.SearchDocument) bool {
			return containsFold(d.Invoice, params.Invoice)
		})
	}

	res.Hits = hits
	res.Count = len(hits)
	return res, nil
}

// TopSellingProducts scans up to the top-seller cap, groups hits by
// (stock code, description), and returns groups sorted by total quantity
// descending, truncated to limit.
func (a *Adapter) TopSellingProducts(ctx context.Context, limit int) ([]domain.TopSeller, error) {
	if limit <= 0 {
		limit = defaultTopSellers
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	res, err := a.keywordSearch(ctx, "", a.caps.TopSellerScan)
	if err != nil {
		return nil, err
	}

	type group struct {
		seller    *domain.TopSeller
		priceSum  float64
		countries map[string]struct{}
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, hit := range res.Hits {
		doc := hit.Document
		key := doc.StockCode + "\x00" + doc.Description
		g, ok := groups[key]
		if !ok {
			g = &group{
				seller: &domain.TopSeller{
					StockCode:   doc.StockCode,
					Description: doc.Description,
				},
				countries: make(map[string]struct{}),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.seller.TotalQuantity += doc.Quantity
		g.seller.Count++
		g.seller.TotalRevenue += doc.Revenue()
		g.priceSum += doc.Price
		g.countries[doc.Country] = struct{}{}
	}

	sellers := make([]domain.TopSeller, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		g.seller.AveragePrice = g.priceSum / float64(g.seller.Count)
		g.seller.Countries = sortedKeys(g.countries)
		sellers = append(sellers, *g.seller)
	}

	sort.SliceStable(sellers, func(i, j int) bool {
		return sellers[i].TotalQuantity > sellers[j].TotalQuantity
	})
	if len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers, nil
}

// ProductStatistics scans up to the statistics cap and accumulates distinct
// sets, totals, and price/date extremes by linear scan. Figures beyond the
// cap are not counted.
func (a *Adapter) ProductStatistics(ctx context.Context) (domain.Statistics, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	res, err := a.keywordSearch(ctx, "", a.caps.StatisticsScan)
	if err != nil {
		return domain.Statistics{}, err
	}

	stats := domain.Statistics{
		UniqueCountries:  []string{},
		UniqueCustomers:  []string{},
		UniqueStockCodes: []string{},
	}

	countries := make(map[string]struct{})
	customers := make(map[string]struct{})
	stockCodes := make(map[string]struct{})

	for i, hit := range res.Hits {
		doc := hit.Document
		countries[doc.Country] = struct{}{}
		customers[doc.CustomerID] = struct{}{}
		stockCodes[doc.StockCode] = struct{}{}
		stats.TotalRevenue += doc.Revenue()
		stats.TotalQuantity += doc.Quantity

		if i == 0 {
			stats.PriceRange = domain.PriceStats{Min: doc.Price, Max: doc.Price}
			stats.DateRange = domain.DateStats{Min: doc.InvoiceDate, Max: doc.InvoiceDate}
			continue
		}
		stats.PriceRange.Min = math.Min(stats.PriceRange.Min, doc.Price)
		stats.PriceRange.Max = math.Max(stats.PriceRange.Max, doc.Price)
		if doc.InvoiceDate.Before(stats.DateRange.Min) {
			stats.DateRange.Min = doc.InvoiceDate
		}
		if doc.InvoiceDate.After(stats.DateRange.Max) {
			stats.DateRange.Max = doc.InvoiceDate
		}
	}

	stats.TotalProducts = len(res.Hits)
	stats.UniqueCountries = sortedKeys(countries)
	stats.UniqueCustomers = sortedKeys(customers)
	stats.UniqueStockCodes = sortedKeys(stockCodes)
	return stats, nil
}

// Insert adds one document to the live index and immediately re-persists the
// full snapshot. Write-through with no batching.
func (a *Adapter) Insert(ctx context.Context, doc domain.SearchDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.idx == nil {
		return domain.ErrNotInitialized
	}
	if err := a.idx.Index(doc.ID, indexFields(doc)); err != nil {
		return fmt.Errorf("index document %q: %w", doc.ID, err)
	}
	a.docs[doc.ID] = doc

	if err := a.persistLocked(ctx); err != nil {
		return err
	}
	return nil
}

// SaveIndex serializes the index and overwrites the account's blob.
func (a *Adapter) SaveIndex(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.persistLocked(ctx)
}

// Count returns the number of live documents.
func (a *Adapter) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.docs)
}

// Close releases the underlying engine resources.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.idx == nil {
		return nil
	}
	err := a.idx.Close()
	a.idx = nil
	return err
}

// ProductsByCountry returns products whose country contains the given value.
func (a *Adapter) ProductsByCountry(ctx context.Context, country string) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{Country: country})
}

// ProductsByPriceRange returns products with unit price in [min, max].
func (a *Adapter) ProductsByPriceRange(ctx context.Context, min, max float64) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{
		PriceRange: &domain.NumericRange{Min: &min, Max: &max},
	})
}

// ProductsByDateRange returns products with invoice date in [start, end].
func (a *Adapter) ProductsByDateRange(ctx context.Context, start, end time.Time) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{
		DateRange: &domain.DateRange{Start: &start, End: &end},
	})
}

// ProductsByInvoice returns products whose invoice contains the given value.
func (a *Adapter) ProductsByInvoice(ctx context.Context, invoice string) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{Invoice: invoice})
}

// ProductsByCustomer returns products whose customer id contains the value.
func (a *Adapter) ProductsByCustomer(ctx context.Context, customerID string) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{CustomerID: customerID})
}

// ProductsByStockCode returns products whose stock code contains the value.
func (a *Adapter) ProductsByStockCode(ctx context.Context, stockCode string) (domain.SearchResponse, error) {
	return a.SearchProducts(ctx, domain.SearchParams{StockCode: stockCode})
}

// RecentSales returns products invoiced in the last n days.
func (a *Adapter) RecentSales(ctx context.Context, days int) (domain.SearchResponse, error) {
	start := time.Now().AddDate(0, 0, -days)
	return a.SearchProducts(ctx, domain.SearchParams{
		DateRange: &domain.DateRange{Start: &start},
	})
}

// keywordSearch runs one bleve query. Callers must hold at least the read
// lock. An empty term becomes a match-all query.
func (a *Adapter) keywordSearch(ctx context.Context, term string, size int) (domain.SearchResponse, error) {
	if a.idx == nil {
		return domain.SearchResponse{}, domain.ErrNotInitialized
	}

	var q query.Query
	if strings.TrimSpace(term) == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		q = bleve.NewMatchQuery(term)
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := a.idx.SearchInContext(ctx, req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("index search: %w", err)
	}

	hits := make([]domain.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		doc, ok := a.docs[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, domain.Hit{ID: h.ID, Score: h.Score, Document: doc})
	}

	return domain.SearchResponse{Hits: hits, Count: len(hits), Elapsed: res.Took}, nil
}

// cosineScan is the vector leg of hybrid search: a brute-force cosine scan
// over the stored embeddings, keeping hits at or above the similarity
// threshold. Callers must hold at least the read lock.
func (a *Adapter) cosineScan(queryVec []float32, limit int) []domain.Hit {
	hits := make([]domain.Hit, 0)
	for id, doc := range a.docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(queryVec, doc.Embedding)
		if sim < a.caps.Similarity {
			continue
		}
		hits = append(hits, domain.Hit{ID: id, Score: sim, Document: doc})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (a *Adapter) persistLocked(ctx context.Context) error {
	blob, err := encodeSnapshot(snapshot{
		Version:   snapshotVersion,
		Dims:      a.dims,
		Documents: sortedDocs(a.docs),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := a.accounts.SaveIndexBlob(ctx, a.accountID, blob); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

func buildMapping() bleveMapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	numeric := bleve.NewNumericFieldMapping()
	date := bleve.NewDateTimeFieldMapping()

	doc := bleve.NewDocumentMapping()
	for _, field := range []string{"invoice", "stockCode", "description", "customerId", "country"} {
		doc.AddFieldMappingsAt(field, text)
	}
	doc.AddFieldMappingsAt("quantity", numeric)
	doc.AddFieldMappingsAt("price", numeric)
	doc.AddFieldMappingsAt("invoiceDate", date)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// indexFields is the projection handed to the engine. Embeddings stay out of
// the lexical index; the adapter serves the vector leg from its own map.
func indexFields(doc domain.SearchDocument) map[string]any {
	return map[string]any{
		"invoice":     doc.Invoice,
		"stockCode":   doc.StockCode,
		"description": doc.Description,
		"quantity":    float64(doc.Quantity),
		"invoiceDate": doc.InvoiceDate,
		"price":       doc.Price,
		"customerId":  doc.CustomerID,
		"country":     doc.Country,
	}
}

func joinTerms(parts ...string) string {
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return strings.Join(terms, " ")
}

func filterHits(hits []domain.Hit, keep func(domain.SearchDocument) bool) []domain.Hit {
	filtered := hits[:0]
	for _, h := range hits {
		if keep(h.Document) {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDocs(docs map[string]domain.SearchDocument) []domain.SearchDocument {
	out := make([]domain.SearchDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
