package agent

// Role identifies who produced a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ResultStatus marks whether a tool invocation succeeded.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is the tagged variant over system, user, assistant, and
// tool-result entries in a conversation log.
type Message struct {
	Role    Role
	Content string

	// ImageBase64 attaches a photo to a user message.
	ImageBase64 string

	// ToolCalls are set on assistant messages that requested tools.
	ToolCalls []ToolCall

	// ToolCallID, ToolName, and Status are set on tool-result messages.
	ToolCallID string
	ToolName   string
	Status     ResultStatus
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func UserImageMessage(content, imageBase64 string) Message {
	return Message{Role: RoleUser, Content: content, ImageBase64: imageBase64}
}

func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolResultMessage(callID, toolName, content string, status ResultStatus) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   toolName,
		Status:     status,
	}
}
