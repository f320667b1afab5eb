package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

func expanderConfig(mode domain.ResponderMode, content ...domain.ContentItem) *domain.ResponderConfig {
	return &domain.ResponderConfig{
		Name:    "test",
		Kind:    domain.KindPreset,
		Mode:    mode,
		Enabled: true,
		Content: content,
		Limits:  domain.HistoryLimits{ChatHistory: 10, MessageHistory: 10},
	}
}

func messageItem(role, text string) domain.ContentItem {
	return domain.ContentItem{Kind: domain.ItemMessage, Role: role, Text: text, Enabled: true}
}

func placeholderItem(name domain.PlaceholderName, count int) domain.ContentItem {
	return domain.ContentItem{Kind: domain.ItemPlaceholder, Placeholder: name, ItemCount: count, Enabled: true}
}

func newTestExpander(h *fakeHistoryRepo) *Expander {
	return NewExpander(NewSubstitutor(h, newFakeVariableRepo()), h)
}

func TestExpandMessageThenUserInput(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard,
		messageItem(domain.RoleSystem, "hi"),
		placeholderItem(domain.PlaceholderUserInput, 0),
	)
	input := []domain.Segment{domain.TextSegment("what's up")}

	got := e.Expand(context.Background(), cfg, input, testContext())

	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Role != domain.RoleSystem || got[0].PlainText() != "hi" {
		t.Errorf("first turn = %+v", got[0])
	}
	if got[1].Role != domain.RoleUser || len(got[1].Parts) != 1 || got[1].Parts[0].Text != "what's up" {
		t.Errorf("second turn should carry the structured input unchanged: %+v", got[1])
	}
}

func TestExpandUserInputSplice(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard,
		messageItem(domain.RoleUser, "before {{user_input}} after"),
	)
	input := []domain.Segment{domain.TextSegment("X"), domain.ImageSegment("u1")}

	got := e.Expand(context.Background(), cfg, input, testContext())

	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(got))
	}
	parts := got[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %+v", parts)
	}
	if parts[0].Type != domain.SegmentText || parts[0].Text != "before X after" {
		t.Errorf("leading text part = %+v", parts[0])
	}
	if parts[1].Type != domain.SegmentImage || parts[1].URL != "u1" {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestExpandUserInputSpliceMultipleFragments(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard,
		messageItem(domain.RoleUser, "a {{user_input}} z"),
	)
	input := []domain.Segment{
		domain.TextSegment("one"),
		domain.ImageSegment("i1"),
		domain.TextSegment("two"),
		domain.ImageSegment("i2"),
	}

	got := e.Expand(context.Background(), cfg, input, testContext())

	parts := got[0].Parts
	if len(parts) != 3 {
		t.Fatalf("expected text + two images, got %+v", parts)
	}
	if parts[0].Text != "a onetwo z" {
		t.Errorf("all text fragments must merge into one leading part, got %q", parts[0].Text)
	}
	if parts[1].URL != "i1" || parts[2].URL != "i2" {
		t.Errorf("images must keep original order: %+v", parts[1:])
	}
}

func TestExpandEmptyMessageSkipped(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard,
		messageItem(domain.RoleSystem, "{{no_such_token}}"),
		messageItem(domain.RoleSystem, "keep"),
	)

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 1 || got[0].PlainText() != "keep" {
		t.Fatalf("empty substituted message must be skipped, got %+v", got)
	}
}

func TestExpandDisabledItemsSkipped(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	disabled := messageItem(domain.RoleSystem, "off")
	disabled.Enabled = false
	cfg := expanderConfig(domain.ModeStandard, disabled, messageItem(domain.RoleSystem, "on"))

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 1 || got[0].PlainText() != "on" {
		t.Fatalf("disabled item leaked into output: %+v", got)
	}
}

func TestExpandEmptyUserInputPlaceholder(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard, placeholderItem(domain.PlaceholderUserInput, 0))

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 1 {
		t.Fatalf("expected one turn, got %d", len(got))
	}
	if got[0].Role != domain.RoleUser || len(got[0].Parts) != 1 || got[0].Parts[0].Type != domain.SegmentText || got[0].Parts[0].Text != "" {
		t.Errorf("empty input must produce a single empty text item, got %+v", got[0])
	}
}

func TestExpandChatHistoryAdvancedBlock(t *testing.T) {
	h := &fakeHistoryRepo{summaries: historyRows(3)}
	e := newTestExpander(h)
	cfg := expanderConfig(domain.ModeAdvanced, placeholderItem(domain.PlaceholderChatHistory, 3))

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 1 {
		t.Fatalf("advanced mode must render one synthetic system block, got %d turns", len(got))
	}
	if got[0].Role != domain.RoleSystem {
		t.Errorf("role = %s", got[0].Role)
	}
	text := got[0].PlainText()
	// newest row dropped, remainder oldest-first
	if strings.Contains(text, "msg3") {
		t.Errorf("newest row must be dropped, got:\n%s", text)
	}
	if !strings.Contains(text, "msg1") || !strings.Contains(text, "msg2") {
		t.Errorf("expected msg1 and msg2 in block:\n%s", text)
	}
	if idx1, idx2 := strings.Index(text, "msg1"), strings.Index(text, "msg2"); idx1 > idx2 {
		t.Errorf("rows must be oldest-first:\n%s", text)
	}
}

func TestExpandChatHistoryStandardTurns(t *testing.T) {
	rows := historyRows(3)
	rows[1].SenderID = "999" // bot-authored row
	rows[1].FromBot = true
	h := &fakeHistoryRepo{summaries: rows}
	e := newTestExpander(h)
	cfg := expanderConfig(domain.ModeStandard, placeholderItem(domain.PlaceholderChatHistory, 3))

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 2 {
		t.Fatalf("expected one turn per surviving row, got %d", len(got))
	}
	// oldest-first: msg1 (user) then msg2 (bot)
	if got[0].Role != domain.RoleUser || !strings.Contains(got[0].PlainText(), "msg1") {
		t.Errorf("first turn = %+v", got[0])
	}
	if got[1].Role != domain.RoleAssistant || got[1].PlainText() != "msg2" {
		t.Errorf("bot row must become a plain assistant turn, got %+v", got[1])
	}
}

func TestExpandMessageHistoryAlwaysBlock(t *testing.T) {
	h := &fakeHistoryRepo{raw: historyRows(3)}
	e := newTestExpander(h)
	cfg := expanderConfig(domain.ModeStandard, placeholderItem(domain.PlaceholderMessageHistory, 3))

	got := e.Expand(context.Background(), cfg, nil, testContext())

	if len(got) != 1 || got[0].Role != domain.RoleSystem {
		t.Fatalf("message_history must render one system block in every mode, got %+v", got)
	}
}


func TestExpandUserInputArgFormSplices(t *testing.T) {
	e := newTestExpander(&fakeHistoryRepo{})
	cfg := expanderConfig(domain.ModeStandard,
		messageItem(domain.RoleUser, "before {{user_input::raw}} after"),
	)
	input := []domain.Segment{domain.TextSegment("X")}

	got := e.Expand(context.Background(), cfg, input, testContext())

	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(got))
	}
	if text := got[0].PlainText(); text != "before X after" {
		t.Errorf("arg-bearing token must splice like the bare one, got %q", text)
	}
}
