// Package chat orchestrates the conversation loop between the LLM and the
// tool executor.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
	"github.com/harborlane/retaildex/internal/usecase/tools"
)

// systemPrompt frames the assistant and its data source for every request.
const systemPrompt = `You are a retail data analyst assistant. You answer questions about a retail transaction dataset (invoices, products, quantities, unit prices, customers, countries, dates) by calling the provided tools and summarizing their results.

Guidelines:
- Use tools to fetch data before answering; do not invent figures.
- Prefer vector_search for vague or conceptual product questions and search_products for precise lookups.
- Quantities are units sold and prices are unit prices in the dataset currency.
- Keep answers concise and reference concrete numbers from the tool results.
- If a tool returns an error or no data, say so plainly.`

// Completer requests chat completions from the LLM provider.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, tools []domain.ToolDefinition) (domain.ChatCompletion, error)
}

// Executor runs one tool call, always yielding a result envelope.
type Executor interface {
	ExecuteRequest(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult
}

// Response is the chat endpoint's answer: the assistant's message, the
// render-ready tool payloads, and aggregate token usage.
type Response struct {
	Message     string                  `json:"message"`
	ToolResults []domain.DisplayPayload `json:"toolResults"`
	Usage       domain.ChatUsage        `json:"usage"`
}

// Service runs the two-phase completion loop: one completion with tool
// schemas attached, concurrent execution of any requested tools, then a
// final completion over the appended tool results.
type Service struct {
	completer Completer
	executor  Executor
	defs      []domain.ToolDefinition
	logger    *zap.Logger
}

// New creates the chat service.
func New(completer Completer, executor Executor, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		executor:  executor,
		defs:      tools.Definitions(),
		logger:    logger,
	}
}

// Chat answers one conversation turn. history is the client-supplied message
// list, newest last. No retries and no streaming; provider failures
// propagate to the transport layer.
func (s *Service) Chat(ctx context.Context, history []domain.ChatMessage) (Response, error) {
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)

	first, err := s.completer.Complete(ctx, messages, s.defs)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(first.Message.ToolCalls) == 0 {
		return Response{
			Message:     first.Message.Content,
			ToolResults: []domain.DisplayPayload{},
			Usage:       first.Usage,
		}, nil
	}

	s.logger.Debug("Executing tool calls", zap.Int("count", len(first.Message.ToolCalls)))

	// Fire-and-collect: calls run concurrently, results land at their
	// request's position so tool messages stay aligned with call ids.
	results := make([]domain.ToolResult, len(first.Message.ToolCalls))
	var wg sync.WaitGroup
	for i, call := range first.Message.ToolCalls {
		wg.Add(1)
		go func(i int, call domain.ToolCallRequest) {
			defer wg.Done()
			results[i] = s.executor.ExecuteRequest(ctx, call)
		}(i, call)
	}
	wg.Wait()

	messages = append(messages, first.Message)
	for _, r := range results {
		messages = append(messages, domain.ChatMessage{
			Role:       domain.RoleTool,
			Content:    marshalToolResult(r.Result),
			ToolCallID: r.ToolCallID,
		})
	}

	second, err := s.completer.Complete(ctx, messages, nil)
	if err != nil {
		return Response{}, fmt.Errorf("final completion: %w", err)
	}

	displays := make([]domain.DisplayPayload, 0, len(results))
	for _, r := range results {
		if r.Display != nil {
			displays = append(displays, *r.Display)
		}
	}

	return Response{
		Message:     second.Message.Content,
		ToolResults: displays,
		Usage:       sumUsage(first.Usage, second.Usage),
	}, nil
}

func marshalToolResult(result any) string {
	content, err := json.Marshal(result)
	if err != nil {
		return `{"error":"tool result could not be serialized"}`
	}
	return string(content)
}

func sumUsage(a, b domain.ChatUsage) domain.ChatUsage {
	return domain.ChatUsage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
