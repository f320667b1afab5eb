package usecase

import (
	"context"
	"log"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// ContextBuilder assembles one immutable VariableContext per inbound message
type ContextBuilder struct {
	history repo.HistoryRepo
	botID   string
	botName string
}

// NewContextBuilder creates a context builder for the given bot identity
func NewContextBuilder(history repo.HistoryRepo, botID, botName string) *ContextBuilder {
	return &ContextBuilder{history: history, botID: botID, botName: botName}
}

// Build snapshots the contextual facts of msg. The reply target is resolved
// through the raw history store; a missed lookup leaves the content empty
// but keeps the is-reply flag set.
func (b *ContextBuilder) Build(ctx context.Context, msg *domain.InboundMessage) *domain.VariableContext {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	key := msg.ContextKey()
	vc := &domain.VariableContext{
		Timestamp:       ts,
		BotID:           b.botID,
		BotName:         b.botName,
		SenderID:        msg.SenderID,
		SenderNickname:  msg.SenderNickname,
		SenderGroupCard: msg.SenderGroupCard,
		GroupID:         msg.GroupID,
		GroupName:       msg.GroupName,
		IsReply:         domain.TriOf(msg.ReplyToID != ""),
		IsPrivate:       domain.TriOf(msg.ChatType == domain.ChatTypePrivate),
		IsGroup:         domain.TriOf(msg.ChatType == domain.ChatTypeGroup),
		RawText:         msg.PlainText(),
		ChatType:        key.ChatType,
		ChatID:          key.ChatID,
	}

	if msg.ReplyToID != "" {
		row, err := b.history.FindByMessageID(ctx, msg.ReplyToID)
		if err != nil {
			log.Printf("[Context] reply target lookup failed for %s: %v", msg.ReplyToID, err)
		} else if row != nil {
			vc.ReplyContent = row.FormatLine()
		}
	}

	return vc
}

// BuildSynthetic snapshots a context for a timer firing, where there is no
// inbound message and no sender.
func (b *ContextBuilder) BuildSynthetic(key domain.ContextKey) *domain.VariableContext {
	senderID := ""
	if key.ChatType == domain.ChatTypePrivate {
		senderID = key.ChatID // the peer is the only possible addressee
	}
	return &domain.VariableContext{
		Timestamp: time.Now(),
		BotID:     b.botID,
		BotName:   b.botName,
		SenderID:  senderID,
		GroupID:   groupIDOf(key),
		IsReply:   domain.TriFalse,
		IsPrivate: domain.TriOf(key.ChatType == domain.ChatTypePrivate),
		IsGroup:   domain.TriOf(key.ChatType == domain.ChatTypeGroup),
		ChatType:  key.ChatType,
		ChatID:    key.ChatID,
	}
}

func groupIDOf(key domain.ContextKey) string {
	if key.ChatType == domain.ChatTypeGroup {
		return key.ChatID
	}
	return ""
}
