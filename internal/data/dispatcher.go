package data

import (
	"context"
	"log"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// logDispatcher records outgoing operations on the process log. It stands in
// for a messaging gateway until one is attached; a real gateway implements
// repo.Dispatcher and replaces it at wiring time.
type logDispatcher struct{}

// NewLogDispatcher creates the logging dispatcher
func NewLogDispatcher() repo.Dispatcher {
	return &logDispatcher{}
}

func (d *logDispatcher) Dispatch(ctx context.Context, key domain.ContextKey, op domain.Operation) error {
	log.Printf("[Dispatch] %s <- %s: %s", key, op.Kind, op.PlainText())
	return nil
}

func (d *logDispatcher) SendText(ctx context.Context, key domain.ContextKey, text string) error {
	log.Printf("[Dispatch] %s <- text: %s", key, text)
	return nil
}

func (d *logDispatcher) Synthesize(ctx context.Context, text string, key domain.ContextKey) error {
	log.Printf("[Dispatch] %s <- voice: %s", key, text)
	return nil
}
