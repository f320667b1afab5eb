package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

func TestBuildResolvesReplyTarget(t *testing.T) {
	target := &domain.HistoryRow{
		MessageID:  "m1",
		ChatType:   domain.ChatTypeGroup,
		ChatID:     "g1",
		SenderID:   "7",
		SenderName: "bob",
		Content:    "the original line",
		CreatedAt:  time.Date(2025, 6, 1, 14, 30, 5, 0, time.UTC),
	}
	history := &fakeHistoryRepo{byMsgID: map[string]*domain.HistoryRow{"m1": target}}
	b := NewContextBuilder(history, "999", "Momo")

	msg := &domain.InboundMessage{
		MessageID: "m2",
		ChatType:  domain.ChatTypeGroup,
		GroupID:   "g1",
		SenderID:  "42",
		ReplyToID: "m1",
		Segments:  []domain.Segment{domain.TextSegment("agreed")},
	}
	vc := b.Build(context.Background(), msg)

	if vc.IsReply != domain.TriTrue {
		t.Error("reply flag not set")
	}
	// the reply target carries the same attribution as history-block lines
	want := target.FormatLine()
	if vc.ReplyContent != want {
		t.Errorf("ReplyContent = %q, want %q", vc.ReplyContent, want)
	}
	for _, piece := range []string{"user_id: 7", "user_name: bob", "2025-06-01", "14:30:05", "the original line"} {
		if !strings.Contains(vc.ReplyContent, piece) {
			t.Errorf("ReplyContent missing %q: %q", piece, vc.ReplyContent)
		}
	}
}

func TestBuildUntrackedReplyKeepsFlag(t *testing.T) {
	b := NewContextBuilder(&fakeHistoryRepo{}, "999", "Momo")
	msg := &domain.InboundMessage{
		MessageID: "m2",
		ChatType:  domain.ChatTypeGroup,
		GroupID:   "g1",
		SenderID:  "42",
		ReplyToID: "gone",
		Segments:  []domain.Segment{domain.TextSegment("hm")},
	}
	vc := b.Build(context.Background(), msg)

	if vc.IsReply != domain.TriTrue {
		t.Error("reply flag must survive a missed lookup")
	}
	if vc.ReplyContent != "" {
		t.Errorf("ReplyContent = %q, want empty for an untracked target", vc.ReplyContent)
	}
}
