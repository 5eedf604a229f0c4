package provider

import "encoding/json"

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// FinishReason classifies why the model stopped generating.
type FinishReason string

const (
	// FinishStop means the model produced a complete textual answer.
	FinishStop FinishReason = "stop"

	// FinishToolCalls means the model is requesting tool invocations.
	FinishToolCalls FinishReason = "tool_calls"

	// FinishLength means generation was cut off by the token limit.
	FinishLength FinishReason = "length"
)

// Message represents one entry in the conversation sent to the backend.
// Content is any because assistant messages that only carry tool calls
// have null content on the wire, and that null must be preserved when
// the message is replayed.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system message with the given text.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user message with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolResultMessage builds a tool-role message carrying the result for
// the tool call identified by callID.
func ToolResultMessage(callID, text string) Message {
	return Message{Role: RoleTool, Content: text, ToolCallID: callID}
}

// Text returns the message content as a string. Null or non-string
// content yields the empty string.
func (m Message) Text() string {
	if s, ok := m.Content.(string); ok {
		return s
	}
	return ""
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool represents a tool definition in the backend's function-calling format.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef holds a function definition for tool use.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Request is the backend-facing inference request.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`

	// ToolChoice is "auto" when tools are offered; empty means the field
	// is omitted, which disables tool calling on the backend.
	ToolChoice string `json:"tool_choice,omitempty"`

	// ReasoningEffort controls inference effort on models that support
	// it ("low", "medium", "high"). Empty omits the field.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`

	// MaxCompletionTokens bounds the generated output length.
	MaxCompletionTokens *int `json:"max_completion_tokens,omitempty"`
}

// Usage holds token accounting from the backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is the backend's complete inference response. Message is the
// assistant message exactly as the backend produced it, so callers can
// append it back into the conversation verbatim.
type Response struct {
	Model        string       `json:"model"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}
