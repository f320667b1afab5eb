package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// Stream discriminator for the two history tables' shared row shape.
const (
	streamSummary = "summary"
	streamRaw     = "raw"
)

// historyRepo implements the history repository on sqlite
type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates the history repository and its schema
func NewHistoryRepo(db *sql.DB) (repo.HistoryRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stream TEXT NOT NULL,
			message_id TEXT NOT NULL,
			chat_type TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			sender_id TEXT,
			sender_name TEXT,
			content TEXT NOT NULL,
			from_bot INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_context ON history(stream, chat_type, chat_id, created_at)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_message ON history(message_id)`)

	return &historyRepo{db: db}, nil
}

func (r *historyRepo) GetRecentSummaries(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error) {
	return r.getRecent(ctx, streamSummary, key, limit)
}

func (r *historyRepo) GetRecentRaw(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error) {
	return r.getRecent(ctx, streamRaw, key, limit)
}

// getRecent returns up to limit rows, newest first
func (r *historyRepo) getRecent(ctx context.Context, stream string, key domain.ContextKey, limit int) ([]domain.HistoryRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, chat_type, chat_id, sender_id, sender_name, content, from_bot, created_at
		FROM history
		WHERE stream = ? AND chat_type = ? AND chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, stream, key.ChatType, key.ChatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRow
	for rows.Next() {
		row, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *historyRepo) AppendSummary(ctx context.Context, row *domain.HistoryRow) error {
	return r.append(ctx, streamSummary, row)
}

func (r *historyRepo) AppendRaw(ctx context.Context, row *domain.HistoryRow) error {
	return r.append(ctx, streamRaw, row)
}

func (r *historyRepo) append(ctx context.Context, stream string, row *domain.HistoryRow) error {
	created := row.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (stream, message_id, chat_type, chat_id, sender_id, sender_name, content, from_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stream, row.MessageID, row.ChatType, row.ChatID, row.SenderID, row.SenderName, row.Content, boolToInt(row.FromBot), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// FindByMessageID looks a message up in the raw stream; nil when absent
func (r *historyRepo) FindByMessageID(ctx context.Context, messageID string) (*domain.HistoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, chat_type, chat_id, sender_id, sender_name, content, from_bot, created_at
		FROM history
		WHERE stream = ? AND message_id = ?
		LIMIT 1
	`, streamRaw, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanHistoryRow(rows)
}

// CleanupOld deletes rows of both streams older than the cutoff
func (r *historyRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up history: %w", err)
	}
	return res.RowsAffected()
}

func scanHistoryRow(rows *sql.Rows) (*domain.HistoryRow, error) {
	var row domain.HistoryRow
	var chatType string
	var senderID, senderName sql.NullString
	var fromBot int
	var created int64
	if err := rows.Scan(&row.ID, &row.MessageID, &chatType, &row.ChatID, &senderID, &senderName, &row.Content, &fromBot, &created); err != nil {
		return nil, fmt.Errorf("failed to scan history row: %w", err)
	}
	row.ChatType = domain.ChatType(chatType)
	row.SenderID = senderID.String
	row.SenderName = senderName.String
	row.FromBot = fromBot != 0
	row.CreatedAt = time.Unix(created, 0)
	return &row, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
