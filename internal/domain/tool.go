package domain

import "encoding/json"

// DisplayType tags how the UI should render a tool result.
type DisplayType string

const (
	// DisplayTable renders rows in a tabular card.
	DisplayTable DisplayType = "table"
	// DisplayText renders a plain text card (also used for error cards).
	DisplayText DisplayType = "text"
)

// DisplayPayload is the render-ready projection of a tool result.
type DisplayPayload struct {
	Type  DisplayType `json:"type"`
	Data  any         `json:"data"`
	Title string      `json:"title,omitempty"`
}

// ToolResult is the uniform envelope produced for every executed tool call.
// Result is what goes back to the LLM; Display is what goes to the UI.
type ToolResult struct {
	ToolCallID string          `json:"toolCallId"`
	Result     any             `json:"result"`
	Display    *DisplayPayload `json:"displayData,omitempty"`
}

// ToolCallRequest is a tool invocation requested by the LLM: a recognized
// tool name, its raw JSON arguments, and the provider-assigned call id.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolDefinition describes one tool to the LLM: name, natural-language
// description, and a JSON-schema parameter object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
