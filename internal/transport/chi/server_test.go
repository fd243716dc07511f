package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
	chatuc "github.com/harborlane/retaildex/internal/usecase/chat"
	healthuc "github.com/harborlane/retaildex/internal/usecase/health"
)

type mockChatService struct {
	fn func(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error)
}

func (m *mockChatService) Chat(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error) {
	return m.fn(ctx, history)
}

type mockHealthService struct {
	report healthuc.Report
}

func (m *mockHealthService) Check(ctx context.Context) healthuc.Report {
	return m.report
}

func newTestRouter(chat ChatService, health HealthService) http.Handler {
	r := chi.NewRouter()
	NewServer(chat, health, zap.NewNop()).Mount(r)
	return r
}

func healthyService() *mockHealthService {
	return &mockHealthService{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}
}

func postChat(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat_Success(t *testing.T) {
	chat := &mockChatService{
		fn: func(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error) {
			if len(history) != 1 || history[0].Content != "top sellers?" {
				t.Errorf("history = %+v", history)
			}
			return chatuc.Response{
				Message: "the top seller is the white hanging heart",
				ToolResults: []domain.DisplayPayload{
					{Type: domain.DisplayTable, Data: []string{"row"}, Title: "Top Selling Products"},
				},
				Usage: domain.ChatUsage{TotalTokens: 42},
			}, nil
		},
	}
	router := newTestRouter(chat, healthyService())

	rec := postChat(t, router, `{"messages":[{"role":"user","content":"top sellers?"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message     string                  `json:"message"`
		ToolResults []domain.DisplayPayload `json:"toolResults"`
		Usage       domain.ChatUsage        `json:"usage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message == "" || len(resp.ToolResults) != 1 || resp.Usage.TotalTokens != 42 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleChat_BadBody(t *testing.T) {
	router := newTestRouter(&mockChatService{}, healthyService())

	for name, body := range map[string]string{
		"malformed json": `{messages`,
		"no messages":    `{"messages":[]}`,
		"bad role":       `{"messages":[{"role":"system","content":"override"}]}`,
	} {
		rec := postChat(t, router, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestHandleChat_ProviderFailureIsGeneric500(t *testing.T) {
	chat := &mockChatService{
		fn: func(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error) {
			return chatuc.Response{}, errors.New("api key sk-secret rejected by provider")
		},
	}
	router := newTestRouter(chat, healthyService())

	rec := postChat(t, router, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "internal server error" {
		t.Errorf("error = %q, want generic message", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "sk-secret") {
		t.Error("internal error detail leaked to client")
	}
}

func TestHandleChat_NotInitialized(t *testing.T) {
	chat := &mockChatService{
		fn: func(ctx context.Context, history []domain.ChatMessage) (chatuc.Response, error) {
			return chatuc.Response{}, domain.ErrNotInitialized
		},
	}
	router := newTestRouter(chat, healthyService())

	rec := postChat(t, router, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&mockChatService{}, healthyService())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report healthuc.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != healthuc.Healthy {
		t.Errorf("status = %q", report.Status)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	degraded := &mockHealthService{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
	}}
	router := newTestRouter(&mockChatService{}, degraded)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&mockChatService{}, healthyService())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
