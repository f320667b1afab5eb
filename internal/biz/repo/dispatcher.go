package repo

import (
	"context"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// Dispatcher performs the actual sends on the messaging gateway and exposes
// the narrow voice-synthesis capability. Out of scope beyond this contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, key domain.ContextKey, op domain.Operation) error
	SendText(ctx context.Context, key domain.ContextKey, text string) error
	Synthesize(ctx context.Context, text string, key domain.ContextKey) error
}
