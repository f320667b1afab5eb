package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// ConfigStore persists responder configurations and their chat-context
// assignments. It implements repo.ConfigResolver: a context resolves to its
// specifically assigned configuration first, else the kind's global default.
type ConfigStore struct {
	db *sql.DB
}

// NewConfigStore creates the store and its schema
func NewConfigStore(db *sql.DB) (*ConfigStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS responder_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			enabled INTEGER DEFAULT 1,
			is_global INTEGER DEFAULT 0,
			payload TEXT NOT NULL,
			UNIQUE (kind, name)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create responder_configs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS responder_assignments (
			config_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			chat_type TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			PRIMARY KEY (kind, chat_type, chat_id)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create responder_assignments table: %w", err)
	}

	return &ConfigStore{db: db}, nil
}

// Save inserts or updates a configuration by (kind, name) and returns its id
func (s *ConfigStore) Save(ctx context.Context, cfg *domain.ResponderConfig, global bool) (int64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responder_configs (kind, name, enabled, is_global, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, name) DO UPDATE SET
			enabled = excluded.enabled,
			is_global = excluded.is_global,
			payload = excluded.payload
	`, cfg.Kind, cfg.Name, boolToInt(cfg.Enabled), boolToInt(global), string(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to save config: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM responder_configs WHERE kind = ? AND name = ?`, cfg.Kind, cfg.Name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read config id: %w", err)
	}
	cfg.ID = id
	return id, nil
}

// Assign binds a chat context to a configuration, replacing any previous
// binding of the same kind for that context.
func (s *ConfigStore) Assign(ctx context.Context, configID int64, kind domain.ResponderKind, key domain.ContextKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responder_assignments (config_id, kind, chat_type, chat_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, chat_type, chat_id) DO UPDATE SET config_id = excluded.config_id
	`, configID, kind, key.ChatType, key.ChatID)
	if err != nil {
		return fmt.Errorf("failed to assign config: %w", err)
	}
	return nil
}

// Unassign removes a context's binding for the kind
func (s *ConfigStore) Unassign(ctx context.Context, kind domain.ResponderKind, key domain.ContextKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM responder_assignments WHERE kind = ? AND chat_type = ? AND chat_id = ?
	`, kind, key.ChatType, key.ChatID)
	if err != nil {
		return fmt.Errorf("failed to unassign config: %w", err)
	}
	return nil
}

// Resolve returns the configuration for a context: specific binding first,
// else the kind's global default, else nil.
func (s *ConfigStore) Resolve(ctx context.Context, kind domain.ResponderKind, key domain.ContextKey) (*domain.ResponderConfig, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT config_id FROM responder_assignments
		WHERE kind = ? AND chat_type = ? AND chat_id = ?
	`, kind, key.ChatType, key.ChatID).Scan(&id)
	if err == nil {
		return s.Get(ctx, kind, id)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to resolve assignment: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, payload FROM responder_configs
		WHERE kind = ? AND is_global = 1
		ORDER BY id DESC LIMIT 1
	`, kind)
	return scanConfig(row)
}

// Get re-reads one configuration by id; nil when it no longer exists
func (s *ConfigStore) Get(ctx context.Context, kind domain.ResponderKind, id int64) (*domain.ResponderConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payload FROM responder_configs WHERE kind = ? AND id = ?`, kind, id)
	return scanConfig(row)
}

// ActiveContexts lists the chat contexts explicitly bound to a configuration
func (s *ConfigStore) ActiveContexts(ctx context.Context, kind domain.ResponderKind, id int64) ([]domain.ContextKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_type, chat_id FROM responder_assignments
		WHERE kind = ? AND config_id = ?
	`, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contexts: %w", err)
	}
	defer rows.Close()

	var out []domain.ContextKey
	for rows.Next() {
		var chatType, chatID string
		if err := rows.Scan(&chatType, &chatID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, domain.ContextKey{ChatType: domain.ChatType(chatType), ChatID: chatID})
	}
	return out, rows.Err()
}

// ListTimed returns every enabled configuration with a timed trigger, for
// arming the scheduler at startup.
func (s *ConfigStore) ListTimed(ctx context.Context) ([]*domain.ResponderConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM responder_configs WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var out []*domain.ResponderConfig
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		cfg, err := decodeConfig(id, payload)
		if err != nil {
			return nil, err
		}
		if cfg.Triggers.Timed {
			out = append(out, cfg)
		}
	}
	return out, rows.Err()
}

func scanConfig(row *sql.Row) (*domain.ResponderConfig, error) {
	var id int64
	var payload string
	err := row.Scan(&id, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decodeConfig(id, payload)
}

func decodeConfig(id int64, payload string) (*domain.ResponderConfig, error) {
	var cfg domain.ResponderConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %d: %w", id, err)
	}
	cfg.ID = id
	return &cfg, nil
}
