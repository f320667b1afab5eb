package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// variableRepo implements the custom-variable repository on sqlite
type variableRepo struct {
	db *sql.DB
}

// NewVariableRepo creates the variable repository and its schema
func NewVariableRepo(db *sql.DB) (repo.VariableRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS variable_definitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			default_value TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create variable_definitions table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS variable_instances (
			definition_id INTEGER NOT NULL,
			chat_type TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (definition_id, chat_type, chat_id, user_id)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create variable_instances table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS global_variables (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create global_variables table: %w", err)
	}

	return &variableRepo{db: db}, nil
}

// GetDefinition returns the named definition, nil when absent
func (r *variableRepo) GetDefinition(ctx context.Context, name string) (*domain.VariableDefinition, error) {
	var def domain.VariableDefinition
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, default_value FROM variable_definitions WHERE name = ?`, name,
	).Scan(&def.ID, &def.Name, &def.DefaultValue)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variable definition: %w", err)
	}
	return &def, nil
}

// DefineVariable registers a definition, keeping an existing one's id
func (r *variableRepo) DefineVariable(ctx context.Context, name, defaultValue string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO variable_definitions (name, default_value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET default_value = excluded.default_value
	`, name, defaultValue)
	if err != nil {
		return fmt.Errorf("failed to define variable: %w", err)
	}
	return nil
}

// GetOrCreateInstance reads a per-context value, lazily materializing it at
// the definition's default on first read.
func (r *variableRepo) GetOrCreateInstance(ctx context.Context, defID int64, key domain.ContextKey, userID string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM variable_instances
		WHERE definition_id = ? AND chat_type = ? AND chat_id = ? AND user_id = ?
	`, defID, key.ChatType, key.ChatID, userID).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to get variable instance: %w", err)
	}

	var defaultValue string
	err = r.db.QueryRowContext(ctx,
		`SELECT default_value FROM variable_definitions WHERE id = ?`, defID,
	).Scan(&defaultValue)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read variable default: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO variable_instances (definition_id, chat_type, chat_id, user_id, value)
		VALUES (?, ?, ?, ?, ?)
	`, defID, key.ChatType, key.ChatID, userID, defaultValue)
	if err != nil {
		return "", fmt.Errorf("failed to materialize variable instance: %w", err)
	}
	return defaultValue, nil
}

// Upsert writes a per-context value
func (r *variableRepo) Upsert(ctx context.Context, defID int64, key domain.ContextKey, userID, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO variable_instances (definition_id, chat_type, chat_id, user_id, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(definition_id, chat_type, chat_id, user_id) DO UPDATE SET value = excluded.value
	`, defID, key.ChatType, key.ChatID, userID, value)
	if err != nil {
		return fmt.Errorf("failed to upsert variable instance: %w", err)
	}
	return nil
}

// GetGlobal returns a process-wide value, empty when unset
func (r *variableRepo) GetGlobal(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM global_variables WHERE name = ?`, name,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get global variable: %w", err)
	}
	return value, nil
}

// SetGlobal writes a process-wide value
func (r *variableRepo) SetGlobal(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO global_variables (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set global variable: %w", err)
	}
	return nil
}
