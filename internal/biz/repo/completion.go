package repo

import (
	"context"
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// ChatMessage is one role/content turn bound for the completion service.
// Parts carry structured content; text-only turns use a single text segment.
type ChatMessage struct {
	Role  string
	Parts []domain.Segment
}

// TextMessage creates a plain text turn
func TextMessage(role, text string) ChatMessage {
	return ChatMessage{Role: role, Parts: []domain.Segment{domain.TextSegment(text)}}
}

// PlainText concatenates the text parts of the turn
func (m ChatMessage) PlainText() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == domain.SegmentText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// CompletionRepo is the chat-completion collaborator. An empty reply or a
// transport failure is returned as an error; the engine never retries.
type CompletionRepo interface {
	Complete(ctx context.Context, messages []ChatMessage, cfg domain.CompletionSettings) (string, error)
}
