package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
)

type mockCompleter struct {
	mu        sync.Mutex
	calls     [][]domain.ChatMessage
	toolsSeen [][]domain.ToolDefinition
	responses []domain.ChatCompletion
	errs      []error
}

func (m *mockCompleter) Complete(
	ctx context.Context, messages []domain.ChatMessage, tools []domain.ToolDefinition,
) (domain.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.calls)
	m.calls = append(m.calls, messages)
	m.toolsSeen = append(m.toolsSeen, tools)
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.ChatCompletion{}, m.errs[i]
	}
	return m.responses[i], nil
}

type mockExecutor struct {
	mu   sync.Mutex
	seen []domain.ToolCallRequest
	fn   func(req domain.ToolCallRequest) domain.ToolResult
}

func (m *mockExecutor) ExecuteRequest(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	m.mu.Lock()
	m.seen = append(m.seen, req)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(req)
	}
	return domain.ToolResult{
		ToolCallID: req.ID,
		Result:     map[string]any{"count": 1},
		Display:    &domain.DisplayPayload{Type: domain.DisplayTable, Data: []string{"row"}},
	}
}

func userTurn(content string) []domain.ChatMessage {
	return []domain.ChatMessage{{Role: domain.RoleUser, Content: content}}
}

func TestChat_DirectAnswerSkipsTools(t *testing.T) {
	completer := &mockCompleter{
		responses: []domain.ChatCompletion{{
			Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: "hello"},
			Usage:   domain.ChatUsage{TotalTokens: 7},
		}},
	}
	executor := &mockExecutor{}
	svc := New(completer, executor, zap.NewNop())

	resp, err := svc.Chat(context.Background(), userTurn("hi"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.ToolResults) != 0 {
		t.Errorf("tool results = %v, want none", resp.ToolResults)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("completions = %d, want 1", len(completer.calls))
	}
	if len(executor.seen) != 0 {
		t.Errorf("executor ran %d tools, want 0", len(executor.seen))
	}

	first := completer.calls[0]
	if first[0].Role != domain.RoleSystem {
		t.Errorf("first message role = %q, want system", first[0].Role)
	}
	if len(completer.toolsSeen[0]) != 6 {
		t.Errorf("tools advertised = %d, want 6", len(completer.toolsSeen[0]))
	}
}

func TestChat_ToolLoop(t *testing.T) {
	toolCalls := []domain.ToolCallRequest{
		{ID: "call_a", Name: "search_products", Arguments: json.RawMessage(`{"term":"mug"}`)},
		{ID: "call_b", Name: "get_top_selling_products", Arguments: json.RawMessage(`{"limit":3}`)},
	}
	completer := &mockCompleter{
		responses: []domain.ChatCompletion{
			{
				Message: domain.ChatMessage{Role: domain.RoleAssistant, ToolCalls: toolCalls},
				Usage:   domain.ChatUsage{PromptTokens: 10, TotalTokens: 12},
			},
			{
				Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: "here are your mugs"},
				Usage:   domain.ChatUsage{PromptTokens: 30, TotalTokens: 35},
			},
		},
	}
	executor := &mockExecutor{}
	svc := New(completer, executor, zap.NewNop())

	resp, err := svc.Chat(context.Background(), userTurn("best mugs?"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Message != "here are your mugs" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.ToolResults) != 2 {
		t.Errorf("tool results = %d, want 2", len(resp.ToolResults))
	}
	if resp.Usage.TotalTokens != 47 {
		t.Errorf("summed usage = %+v", resp.Usage)
	}
	if len(executor.seen) != 2 {
		t.Fatalf("executor ran %d tools, want 2", len(executor.seen))
	}

	// Second completion: tool schemas are withheld and tool messages are
	// aligned with the assistant's call ids.
	if len(completer.toolsSeen[1]) != 0 {
		t.Errorf("tools on second completion = %d, want 0", len(completer.toolsSeen[1]))
	}
	second := completer.calls[1]
	last, prev := second[len(second)-1], second[len(second)-2]
	if prev.Role != domain.RoleTool || last.Role != domain.RoleTool {
		t.Fatalf("trailing roles = %q, %q, want tool, tool", prev.Role, last.Role)
	}
	if prev.ToolCallID != "call_a" || last.ToolCallID != "call_b" {
		t.Errorf("tool call ids = %q, %q", prev.ToolCallID, last.ToolCallID)
	}
	assistant := second[len(second)-3]
	if assistant.Role != domain.RoleAssistant || len(assistant.ToolCalls) != 2 {
		t.Errorf("assistant turn not replayed: %+v", assistant)
	}
}

func TestChat_ToolFailureStillAnswers(t *testing.T) {
	completer := &mockCompleter{
		responses: []domain.ChatCompletion{
			{
				Message: domain.ChatMessage{
					Role:      domain.RoleAssistant,
					ToolCalls: []domain.ToolCallRequest{{ID: "call_a", Name: "vector_search"}},
				},
			},
			{
				Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: "the search failed"},
			},
		},
	}
	executor := &mockExecutor{
		fn: func(req domain.ToolCallRequest) domain.ToolResult {
			return domain.ToolResult{
				ToolCallID: req.ID,
				Result:     map[string]string{"error": "embedding provider error"},
				Display:    &domain.DisplayPayload{Type: domain.DisplayText, Data: "embedding provider error", Title: "Tool Execution Error"},
			}
		},
	}
	svc := New(completer, executor, zap.NewNop())

	resp, err := svc.Chat(context.Background(), userTurn("anything"))
	if err != nil {
		t.Fatalf("chat must not fail on tool errors: %v", err)
	}
	if len(resp.ToolResults) != 1 || resp.ToolResults[0].Type != domain.DisplayText {
		t.Errorf("tool results = %+v, want one text error card", resp.ToolResults)
	}
}

func TestChat_FirstCompletionError(t *testing.T) {
	providerErr := errors.New("upstream down")
	completer := &mockCompleter{
		errs:      []error{providerErr},
		responses: []domain.ChatCompletion{{}},
	}
	svc := New(completer, &mockExecutor{}, zap.NewNop())

	_, err := svc.Chat(context.Background(), userTurn("hi"))
	if !errors.Is(err, providerErr) {
		t.Errorf("error = %v, want wrapped provider error", err)
	}
}

func TestChat_SecondCompletionError(t *testing.T) {
	providerErr := errors.New("upstream down")
	completer := &mockCompleter{
		errs: []error{nil, providerErr},
		responses: []domain.ChatCompletion{
			{Message: domain.ChatMessage{
				Role:      domain.RoleAssistant,
				ToolCalls: []domain.ToolCallRequest{{ID: "call_a", Name: "search_products"}},
			}},
			{},
		},
	}
	svc := New(completer, &mockExecutor{}, zap.NewNop())

	_, err := svc.Chat(context.Background(), userTurn("hi"))
	if !errors.Is(err, providerErr) {
		t.Errorf("error = %v, want wrapped provider error", err)
	}
}
