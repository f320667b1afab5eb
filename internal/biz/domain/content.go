package domain

import "fmt"

// ContentItemKind discriminates the two content item shapes
type ContentItemKind string

const (
	ItemMessage     ContentItemKind = "message"
	ItemPlaceholder ContentItemKind = "placeholder"
)

// PlaceholderName enumerates the recognized placeholder variables
type PlaceholderName string

const (
	PlaceholderUserInput      PlaceholderName = "user_input"
	PlaceholderChatHistory    PlaceholderName = "chat_history"
	PlaceholderMessageHistory PlaceholderName = "message_history"
)

// Chat roles on provider-bound messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentItem is one element of a responder's template: either a literal
// message or a placeholder. Exactly one of the two shapes per item.
type ContentItem struct {
	Kind        ContentItemKind
	Role        string // message shape
	Text        string // message shape
	Placeholder PlaceholderName
	ItemCount   int // placeholder shape: history item count
	Enabled     bool
}

// Validate checks the one-shape-per-item invariant
func (it *ContentItem) Validate() error {
	switch it.Kind {
	case ItemMessage:
		if it.Placeholder != "" {
			return fmt.Errorf("message item must not carry a placeholder")
		}
		switch it.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message item has unknown role %q", it.Role)
		}
	case ItemPlaceholder:
		if it.Text != "" || it.Role != "" {
			return fmt.Errorf("placeholder item must not carry message fields")
		}
		switch it.Placeholder {
		case PlaceholderUserInput, PlaceholderChatHistory, PlaceholderMessageHistory:
		default:
			return fmt.Errorf("unknown placeholder %q", it.Placeholder)
		}
	default:
		return fmt.Errorf("unknown content item kind %q", it.Kind)
	}
	return nil
}
