package usecase

import (
	"context"
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

const userInputToken = "{{user_input}}"

// Expander walks a responder's content list and produces the provider-ready
// message sequence, splicing in history and the current user input.
type Expander struct {
	subst   *Substitutor
	history repo.HistoryRepo
}

// NewExpander creates an expander on top of the substitutor
func NewExpander(subst *Substitutor, history repo.HistoryRepo) *Expander {
	return &Expander{subst: subst, history: history}
}

// Expand processes cfg.Content in order. Disabled items are skipped; output
// ordering is strictly the content order.
func (e *Expander) Expand(ctx context.Context, cfg *domain.ResponderConfig, userInput []domain.Segment, vc *domain.VariableContext) []repo.ChatMessage {
	var out []repo.ChatMessage
	for i := range cfg.Content {
		item := &cfg.Content[i]
		if !item.Enabled {
			continue
		}
		switch item.Kind {
		case domain.ItemMessage:
			out = append(out, e.expandMessage(ctx, item, cfg, userInput, vc)...)
		case domain.ItemPlaceholder:
			out = append(out, e.expandPlaceholder(ctx, item, cfg, userInput, vc)...)
		}
	}
	return out
}

func (e *Expander) expandMessage(ctx context.Context, item *domain.ContentItem, cfg *domain.ResponderConfig, userInput []domain.Segment, vc *domain.VariableContext) []repo.ChatMessage {
	text := e.subst.Substitute(ctx, item.Text, vc, cfg.Limits)
	if strings.Contains(text, userInputToken) {
		return []repo.ChatMessage{{Role: item.Role, Parts: spliceUserInput(text, userInput)}}
	}
	if text == "" {
		return nil
	}
	return []repo.ChatMessage{repo.TextMessage(item.Role, text)}
}

// spliceUserInput splits the substituted template at the user_input token
// and merges the user's structured input into it: every text fragment (the
// template text around the token plus every text item of the input) is
// concatenated into one leading text part, followed by all image parts of
// the input in their original order. This guarantees at most one text
// segment precedes any images no matter how many fragments contributed.
func spliceUserInput(text string, userInput []domain.Segment) []domain.Segment {
	before, after, _ := strings.Cut(text, userInputToken)
	after = strings.ReplaceAll(after, userInputToken, "")

	var lead strings.Builder
	lead.WriteString(before)
	var images []domain.Segment
	for _, seg := range userInput {
		switch seg.Type {
		case domain.SegmentText:
			lead.WriteString(seg.Text)
		case domain.SegmentImage:
			images = append(images, seg)
		default:
			lead.WriteString(seg.Placeholder())
		}
	}
	lead.WriteString(after)

	parts := []domain.Segment{domain.TextSegment(lead.String())}
	return append(parts, images...)
}

func (e *Expander) expandPlaceholder(ctx context.Context, item *domain.ContentItem, cfg *domain.ResponderConfig, userInput []domain.Segment, vc *domain.VariableContext) []repo.ChatMessage {
	switch item.Placeholder {
	case domain.PlaceholderUserInput:
		input := userInput
		if len(input) == 0 {
			// trigger paths with no textual content still need a valid turn
			input = []domain.Segment{domain.TextSegment("")}
		}
		return []repo.ChatMessage{{Role: domain.RoleUser, Parts: input}}

	case domain.PlaceholderChatHistory:
		rows := e.fetchRows(ctx, vc, item.ItemCount, cfg.Limits.ChatHistory, e.history.GetRecentSummaries)
		if cfg.Mode == domain.ModeAdvanced {
			return blockMessage(rows)
		}
		return rowMessages(rows, vc.BotID)

	case domain.PlaceholderMessageHistory:
		rows := e.fetchRows(ctx, vc, item.ItemCount, cfg.Limits.MessageHistory, e.history.GetRecentRaw)
		return blockMessage(rows)
	}
	return nil
}

// fetchRows loads at most n rows (newest-first), drops the single most
// recent one when more than one is available and returns them oldest-first.
func (e *Expander) fetchRows(ctx context.Context, vc *domain.VariableContext, n, fallback int, fetch historyFetch) []domain.HistoryRow {
	if n <= 0 {
		n = fallback
	}
	if n <= 0 {
		return nil
	}
	rows, err := fetch(ctx, vc.ContextKey(), n)
	if err != nil {
		return nil
	}
	rows = DropNewest(rows)
	out := make([]domain.HistoryRow, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out
}

// blockMessage renders rows as one synthetic system message holding a
// single formatted block
func blockMessage(rows []domain.HistoryRow) []repo.ChatMessage {
	if len(rows) == 0 {
		return nil
	}
	lines := make([]string, 0, len(rows))
	for i := range rows {
		lines = append(lines, rows[i].FormatLine())
	}
	return []repo.ChatMessage{repo.TextMessage(domain.RoleSystem, strings.Join(lines, "\n"))}
}

// rowMessages renders one role-tagged turn per row: rows the bot authored
// become assistant turns with their plain content, everything else becomes
// a user turn in the canonical line format.
func rowMessages(rows []domain.HistoryRow, botID string) []repo.ChatMessage {
	out := make([]repo.ChatMessage, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.FromBot || (botID != "" && row.SenderID == botID) {
			out = append(out, repo.TextMessage(domain.RoleAssistant, row.Content))
			continue
		}
		out = append(out, repo.TextMessage(domain.RoleUser, row.FormatLine()))
	}
	return out
}
