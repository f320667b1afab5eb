package repo

import (
	"context"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// HistoryRepo persists the two history streams: the summarized chat-history
// stream consumed by chat_history injection, and the raw message log
// consumed by message_history injection and reply-target lookup.
// GetRecent* return rows newest-first.
type HistoryRepo interface {
	GetRecentSummaries(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error)
	GetRecentRaw(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error)

	AppendSummary(ctx context.Context, row *domain.HistoryRow) error
	AppendRaw(ctx context.Context, row *domain.HistoryRow) error

	// FindByMessageID looks up a raw row by gateway message id.
	// Returns nil without error when the row is absent.
	FindByMessageID(ctx context.Context, messageID string) (*domain.HistoryRow, error)

	// CleanupOld removes rows older than before from both streams and
	// returns the number of rows deleted.
	CleanupOld(ctx context.Context, before time.Time) (int64, error)
}
