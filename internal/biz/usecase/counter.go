package usecase

import (
	"sync"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// QuantitativeCounter counts messages seen per chat context since the last
// reset. It is owned by the pipeline and shared across concurrent message
// handlers; increment-then-compare-then-reset is atomic per context key so
// two overlapping threshold crossings cannot both fire.
type QuantitativeCounter struct {
	mu     sync.Mutex
	counts map[domain.ContextKey]int
}

// NewQuantitativeCounter creates an empty counter map
func NewQuantitativeCounter() *QuantitativeCounter {
	return &QuantitativeCounter{counts: make(map[domain.ContextKey]int)}
}

// Increment records one inbound message for the context and returns the new
// count. Called once per ingested message regardless of trigger outcome.
func (c *QuantitativeCounter) Increment(key domain.ContextKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key]
}

// ConsumeIfAtLeast resets the context's count to zero and reports true when
// it has reached threshold. The reset happens before the caller learns the
// gate outcome, so a failed gate still consumes the window.
func (c *QuantitativeCounter) ConsumeIfAtLeast(key domain.ContextKey, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[key] < threshold {
		return false
	}
	c.counts[key] = 0
	return true
}

// Peek returns the current count for the context
func (c *QuantitativeCounter) Peek(key domain.ContextKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}
