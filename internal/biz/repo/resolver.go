package repo

import (
	"context"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// ConfigResolver resolves responder configurations per chat context:
// specific binding first, else the kind's global default, else none (nil).
type ConfigResolver interface {
	Resolve(ctx context.Context, kind domain.ResponderKind, key domain.ContextKey) (*domain.ResponderConfig, error)

	// Get re-reads one configuration by id; nil when deleted.
	Get(ctx context.Context, kind domain.ResponderKind, id int64) (*domain.ResponderConfig, error)

	// ActiveContexts lists the chat contexts bound to one configuration,
	// used by the timed-trigger scheduler's fan-out.
	ActiveContexts(ctx context.Context, kind domain.ResponderKind, id int64) ([]domain.ContextKey, error)
}
