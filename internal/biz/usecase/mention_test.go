package usecase

import (
	"testing"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

func TestTransformMentionsAdvanced(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		selfID string
		want   string
	}{
		{"self and target", "[@me] hi [@123]", "999", "<at>999</at> hi <at>123</at>"},
		{"self unknown left untouched", "[@me] hi", "", "[@me] hi"},
		{"target only", "ping [@42]", "", "ping <at>42</at>"},
		{"no markers", "plain text", "999", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformMentions(tt.text, domain.ModeAdvanced, tt.selfID)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransformMentionsStandard(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"markers removed and collapsed", "[@me] hi [@123]", "hi"},
		{"interior whitespace collapsed", "a  [@1]  b", "a b"},
		{"newlines preserved", "[@1] x\ny  [@2]", "x\ny"},
		{"no markers", "hello world", "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformMentions(tt.text, domain.ModeStandard, "")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
