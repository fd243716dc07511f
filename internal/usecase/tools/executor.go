package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/domain"
	"github.com/harborlane/retaildex/internal/metrics"
)

// Executor runs tool operations against an initialized search index and
// shapes the uniform result envelope. Execution failures never escape as
// errors: the caller always gets a ToolResult, failures carrying an error
// description and a text display card so the conversation can continue.
type Executor struct {
	idx    Index
	logger *zap.Logger
}

// NewExecutor creates an executor over an already-initialized index.
func NewExecutor(idx Index, logger *zap.Logger) *Executor {
	return &Executor{idx: idx, logger: logger}
}

// ExecuteRequest parses and executes one raw tool call. Unknown tool names
// and malformed arguments become error results.
func (e *Executor) ExecuteRequest(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	call, err := ParseCall(req)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(req.Name, "error").Inc()
		e.logger.Warn("Tool call rejected",
			zap.String("tool", req.Name),
			zap.Error(err),
		)
		return errorResult(req.ID, err)
	}
	return e.Execute(ctx, call)
}

// Execute runs one parsed call.
func (e *Executor) Execute(ctx context.Context, call Call) domain.ToolResult {
	name := call.Op.Name()
	start := time.Now()

	result, display, err := call.Op.execute(ctx, e.idx)

	duration := time.Since(start)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		e.logger.Warn("Tool execution failed",
			zap.String("tool", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return errorResult(call.ID, err)
	}

	metrics.ToolExecutionsTotal.WithLabelValues(name, "success").Inc()
	metrics.ToolExecutionDuration.WithLabelValues(name).Observe(duration.Seconds())

	return domain.ToolResult{ToolCallID: call.ID, Result: result, Display: display}
}

func errorResult(id string, err error) domain.ToolResult {
	return domain.ToolResult{
		ToolCallID: id,
		Result:     map[string]string{"error": err.Error()},
		Display: &domain.DisplayPayload{
			Type:  domain.DisplayText,
			Data:  err.Error(),
			Title: "Tool Execution Error",
		},
	}
}
