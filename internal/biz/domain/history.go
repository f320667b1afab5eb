package domain

import (
	"fmt"
	"time"
)

// HistoryRow represents one stored history entry.
// Content is stored flattened: non-text segments collapsed to bracketed
// placeholders and mention markers rewritten by the history writer.
type HistoryRow struct {
	ID         int64
	MessageID  string
	ChatType   ChatType
	ChatID     string
	SenderID   string
	SenderName string
	Content    string
	FromBot    bool
	CreatedAt  time.Time
}

// ContextKey returns the chat context of the row
func (r *HistoryRow) ContextKey() ContextKey {
	return ContextKey{ChatType: r.ChatType, ChatID: r.ChatID}
}

// FormatLine renders the row in the canonical history-block line format
func (r *HistoryRow) FormatLine() string {
	return fmt.Sprintf("(user_id: %s, user_name: %s, date: %s, time: %s): %s",
		r.SenderID, r.SenderName,
		r.CreatedAt.Format("2006-01-02"), r.CreatedAt.Format("15:04:05"),
		r.Content)
}
