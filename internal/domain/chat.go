package domain

// Chat message roles, mirroring the provider wire protocol.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn in a conversation. ToolCalls is set on assistant
// messages that request tools; ToolCallID on tool-role result messages.
type ChatMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []ToolCallRequest `json:"-"`
	ToolCallID string            `json:"-"`
}

// ChatUsage is the provider-reported token usage of a completion.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletion is the provider's answer to one completion request.
type ChatCompletion struct {
	Message ChatMessage
	Usage   ChatUsage
}
