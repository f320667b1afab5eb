package repo

import (
	"context"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// VariableRepo is the custom-variable store. Per-context instances are
// lazily materialized at the definition's default value on first read.
type VariableRepo interface {
	// GetDefinition returns nil without error when no definition exists.
	GetDefinition(ctx context.Context, name string) (*domain.VariableDefinition, error)

	// DefineVariable registers a definition or updates its default.
	DefineVariable(ctx context.Context, name, defaultValue string) error

	// GetOrCreateInstance reads the per-context value, creating it at the
	// definition's default when no instance exists yet.
	GetOrCreateInstance(ctx context.Context, defID int64, key domain.ContextKey, userID string) (string, error)

	Upsert(ctx context.Context, defID int64, key domain.ContextKey, userID, value string) error

	// GetGlobal returns an empty string when the variable is unset.
	GetGlobal(ctx context.Context, name string) (string, error)
	SetGlobal(ctx context.Context, name, value string) error
}
