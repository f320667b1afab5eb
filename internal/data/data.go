package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lumokit/chat-responder/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all repositories
type Repositories struct {
	History    repo.HistoryRepo
	Variables  repo.VariableRepo
	Configs    *ConfigStore
	Completion repo.CompletionRepo
	Dispatcher repo.Dispatcher

	db *sql.DB
}

// NewRepositories opens the shared database and creates all repositories
func NewRepositories(dbPath string) (*Repositories, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	historyRepo, err := NewHistoryRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	variableRepo, err := NewVariableRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	configStore, err := NewConfigStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		History:    historyRepo,
		Variables:  variableRepo,
		Configs:    configStore,
		Completion: NewCompletionRepo(),
		Dispatcher: NewLogDispatcher(),
		db:         db,
	}, nil
}

// Close closes the shared database
func (r *Repositories) Close() error {
	return r.db.Close()
}
