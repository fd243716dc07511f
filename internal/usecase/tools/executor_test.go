package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
)

type mockIndex struct {
	searchProductsFn func(ctx context.Context, params domain.SearchParams) (domain.SearchResponse, error)
	byCountryFn      func(ctx context.Context, country string) (domain.SearchResponse, error)
	byPriceFn        func(ctx context.Context, min, max float64) (domain.SearchResponse, error)
	byDateFn         func(ctx context.Context, start, end time.Time) (domain.SearchResponse, error)
	topSellingFn     func(ctx context.Context, limit int) ([]domain.TopSeller, error)
	vectorFn         func(ctx context.Context, term string) (domain.SearchResponse, error)
}

func (m *mockIndex) SearchProducts(ctx context.Context, params domain.SearchParams) (domain.SearchResponse, error) {
	return m.searchProductsFn(ctx, params)
}

func (m *mockIndex) ProductsByCountry(ctx context.Context, country string) (domain.SearchResponse, error) {
	return m.byCountryFn(ctx, country)
}

func (m *mockIndex) ProductsByPriceRange(ctx context.Context, min, max float64) (domain.SearchResponse, error) {
	return m.byPriceFn(ctx, min, max)
}

func (m *mockIndex) ProductsByDateRange(ctx context.Context, start, end time.Time) (domain.SearchResponse, error) {
	return m.byDateFn(ctx, start, end)
}

func (m *mockIndex) TopSellingProducts(ctx context.Context, limit int) ([]domain.TopSeller, error) {
	return m.topSellingFn(ctx, limit)
}

func (m *mockIndex) VectorSearch(ctx context.Context, term string) (domain.SearchResponse, error) {
	return m.vectorFn(ctx, term)
}

func singleHitResponse() domain.SearchResponse {
	return domain.SearchResponse{
		Hits: []domain.Hit{{
			ID:    "1",
			Score: 1,
			Document: domain.SearchDocument{
				ID:          "1",
				Invoice:     "536365",
				StockCode:   "85123A",
				Description: "white hanging heart",
				Quantity:    6,
				InvoiceDate: time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC),
				Price:       2.55,
				CustomerID:  "17850",
				Country:     "United Kingdom",
			},
		}},
		Count: 1,
	}
}

func request(name, args string) domain.ToolCallRequest {
	return domain.ToolCallRequest{ID: "call_1", Name: name, Arguments: json.RawMessage(args)}
}

func TestExecuteRequest_SearchProducts(t *testing.T) {
	var got domain.SearchParams
	idx := &mockIndex{
		searchProductsFn: func(ctx context.Context, params domain.SearchParams) (domain.SearchResponse, error) {
			got = params
			return singleHitResponse(), nil
		},
	}
	e := NewExecutor(idx, zap.NewNop())

	res := e.ExecuteRequest(context.Background(), request(ToolSearchProducts,
		`{"term":"heart","country":"United Kingdom","priceMin":1,"priceMax":5,"dateFrom":"2010-12-01"}`,
	))

	if got.Term != "heart" || got.Country != "United Kingdom" {
		t.Errorf("params = %+v", got)
	}
	if got.PriceRange == nil || *got.PriceRange.Min != 1 || *got.PriceRange.Max != 5 {
		t.Errorf("price range = %+v", got.PriceRange)
	}
	if got.DateRange == nil || got.DateRange.Start == nil || got.DateRange.End != nil {
		t.Errorf("date range = %+v", got.DateRange)
	}

	if res.ToolCallID != "call_1" {
		t.Errorf("tool call id = %q", res.ToolCallID)
	}
	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Fatalf("display = %+v, want table", res.Display)
	}
	rows, ok := res.Display.Data.([]productRow)
	if !ok || len(rows) != 1 {
		t.Fatalf("display data = %#v, want 1 row", res.Display.Data)
	}
	if rows[0].Total != 6*2.55 {
		t.Errorf("row total = %v, want %v", rows[0].Total, 6*2.55)
	}
}

func TestExecuteRequest_ByCountry(t *testing.T) {
	idx := &mockIndex{
		byCountryFn: func(ctx context.Context, country string) (domain.SearchResponse, error) {
			if country != "France" {
				t.Errorf("country = %q, want France", country)
			}
			return singleHitResponse(), nil
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolProductsByCountry, `{"country":"France"}`))

	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Errorf("display = %+v, want table", res.Display)
	}
}

func TestExecuteRequest_PriceRange(t *testing.T) {
	idx := &mockIndex{
		byPriceFn: func(ctx context.Context, min, max float64) (domain.SearchResponse, error) {
			if min != 2 || max != 10 {
				t.Errorf("range = [%v, %v], want [2, 10]", min, max)
			}
			return singleHitResponse(), nil
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolPriceRangeProducts, `{"priceMin":2,"priceMax":10}`))

	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Errorf("display = %+v, want table", res.Display)
	}
}

func TestExecuteRequest_PriceRangeInverted(t *testing.T) {
	e := NewExecutor(&mockIndex{}, zap.NewNop())
	res := e.ExecuteRequest(context.Background(),
		request(ToolPriceRangeProducts, `{"priceMin":10,"priceMax":2}`))

	if res.Display == nil || res.Display.Type != domain.DisplayText {
		t.Errorf("display = %+v, want error text card", res.Display)
	}
}

func TestExecuteRequest_TopSelling(t *testing.T) {
	idx := &mockIndex{
		topSellingFn: func(ctx context.Context, limit int) ([]domain.TopSeller, error) {
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return []domain.TopSeller{{StockCode: "85123A", TotalQuantity: 25, Count: 2}}, nil
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolTopSellingProducts, `{"limit":5}`))

	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Fatalf("display = %+v, want table", res.Display)
	}
	sellers, ok := res.Display.Data.([]domain.TopSeller)
	if !ok || len(sellers) != 1 || sellers[0].TotalQuantity != 25 {
		t.Errorf("display data = %#v", res.Display.Data)
	}
}

func TestExecuteRequest_DateRange(t *testing.T) {
	idx := &mockIndex{
		byDateFn: func(ctx context.Context, start, end time.Time) (domain.SearchResponse, error) {
			if start.Year() != 2010 || end.Year() != 2011 {
				t.Errorf("range = [%v, %v]", start, end)
			}
			return singleHitResponse(), nil
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolProductsByDateRange, `{"dateFrom":"2010-12-01","dateTo":"2011-12-09"}`))

	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Errorf("display = %+v, want table", res.Display)
	}
}

func TestExecuteRequest_VectorSearch(t *testing.T) {
	idx := &mockIndex{
		vectorFn: func(ctx context.Context, term string) (domain.SearchResponse, error) {
			if term != "cozy winter gifts" {
				t.Errorf("term = %q", term)
			}
			return singleHitResponse(), nil
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolVectorSearch, `{"term":"cozy winter gifts"}`))

	if res.Display == nil || res.Display.Type != domain.DisplayTable {
		t.Errorf("display = %+v, want table", res.Display)
	}
}

func TestExecuteRequest_UnknownToolNeverErrors(t *testing.T) {
	e := NewExecutor(&mockIndex{}, zap.NewNop())

	res := e.ExecuteRequest(context.Background(), request("drop_tables", `{}`))

	if res.ToolCallID != "call_1" {
		t.Errorf("tool call id = %q", res.ToolCallID)
	}
	if res.Display == nil || res.Display.Type != domain.DisplayText {
		t.Fatalf("display = %+v, want text error card", res.Display)
	}
	errMap, ok := res.Result.(map[string]string)
	if !ok || errMap["error"] == "" {
		t.Errorf("result = %#v, want error description", res.Result)
	}
}

func TestExecuteRequest_IndexFailureBecomesErrorResult(t *testing.T) {
	idx := &mockIndex{
		vectorFn: func(ctx context.Context, term string) (domain.SearchResponse, error) {
			return domain.SearchResponse{}, domain.ErrEmbeddingProviderError
		},
	}
	res := NewExecutor(idx, zap.NewNop()).ExecuteRequest(context.Background(),
		request(ToolVectorSearch, `{"term":"anything"}`))

	if res.Display == nil || res.Display.Type != domain.DisplayText || res.Display.Title != "Tool Execution Error" {
		t.Errorf("display = %+v, want error card", res.Display)
	}
}

func TestParseCall_UnknownTool(t *testing.T) {
	_, err := ParseCall(request("no_such_tool", `{}`))
	if !errors.Is(err, domain.ErrUnknownTool) {
		t.Errorf("error = %v, want ErrUnknownTool", err)
	}
}

func TestParseCall_MalformedArguments(t *testing.T) {
	_, err := ParseCall(request(ToolSearchProducts, `{not json`))
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestDefinitions_CoverEveryTool(t *testing.T) {
	defs := Definitions()
	if len(defs) != 6 {
		t.Fatalf("got %d definitions, want 6", len(defs))
	}
	names := make(map[string]bool)
	for _, d := range defs {
		names[d.Name] = true
		var schema map[string]any
		if err := json.Unmarshal(d.Parameters, &schema); err != nil {
			t.Errorf("%s: parameters not valid JSON: %v", d.Name, err)
		}
		if schema["type"] != "object" {
			t.Errorf("%s: schema type = %v", d.Name, schema["type"])
		}
	}
	for _, name := range []string{
		ToolSearchProducts, ToolProductsByCountry, ToolPriceRangeProducts,
		ToolTopSellingProducts, ToolProductsByDateRange, ToolVectorSearch,
	} {
		if !names[name] {
			t.Errorf("missing definition for %s", name)
		}
	}
}
