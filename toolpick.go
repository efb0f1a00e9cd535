package toolpick

import (
	json "github.com/goccy/go-json"
)

// ReplyActionName is the discriminant of the built-in action that answers the
// user in natural language instead of calling a tool.
const ReplyActionName = "reply_to_user"

// DefaultSlot is the output slot name used when the caller does not choose one.
const DefaultSlot = "selected_tool"

const (
	fieldName      = "name"
	fieldArguments = "arguments"
	fieldContent   = "content"
)

// Tool is the minimal contract for something the model may select. It matches the
// shape of common tool registries, so their tools can be offered directly via FromTool.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool's arguments as a map.
	Parameters() map[string]any
}

// ToolCall is a single execution request produced from a finalized Action.
type ToolCall struct {
	ID       string
	ToolName string
	Args     json.RawMessage // JSON payload of arguments
}

// Role identifies the author of a chat message.
type Role string

// Chat roles understood by Client implementations.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
