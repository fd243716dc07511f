package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
	"github.com/harborlane/retaildex/internal/metrics"
)

// ChatCompleter is a chat-completion provider using the OpenAI-compatible API.
type ChatCompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// NewChatCompleter creates an OpenAI-compatible chat provider.
func NewChatCompleter(cfg *ChatConfig) *ChatCompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatCompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Complete requests one chat completion. When tools is non-empty the model
// may answer with tool-call requests instead of content. Provider failures
// wrap domain.ErrChatProviderError.
func (c *ChatCompleter) Complete(
	ctx context.Context, messages []domain.ChatMessage, tools []domain.ToolDefinition,
) (domain.ChatCompletion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toProviderMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = toProviderTools(tools)
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatCompletionsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.ChatCompletion{}, parseProviderError(err, "chat", domain.ErrChatProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatCompletionsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.ChatCompletion{}, fmt.Errorf("empty completion response: %w", domain.ErrChatProviderError)
	}

	metrics.ChatCompletionsTotal.WithLabelValues(c.model, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	choice := resp.Choices[0].Message
	c.logger.Debug("Chat completion received",
		zap.String("model", c.model),
		zap.Int("tool_calls", len(choice.ToolCalls)),
		zap.Duration("duration", duration),
	)

	return domain.ChatCompletion{
		Message: fromProviderMessage(choice),
		Usage: domain.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func toProviderMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		pm := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			pm.ToolCalls = append(pm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, pm)
	}
	return out
}

func toProviderTools(tools []domain.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func fromProviderMessage(m openai.ChatCompletionMessage) domain.ChatMessage {
	msg := domain.ChatMessage{
		Role:    m.Role,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, domain.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return msg
}
