package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleSystem carries instructions and context such as the graph schema.
	RoleSystem Role = "system"

	// RoleUser carries the question or the data to judge.
	RoleUser Role = "user"

	// RoleAssistant carries a previous model answer, used when re-prompting
	// after malformed output.
	RoleAssistant Role = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsValid reports whether the message has a known role and content.
func (m Message) IsValid() bool {
	return m.Role.IsValid() && m.Content != ""
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}
