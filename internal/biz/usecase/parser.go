package usecase

import (
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

// Tag vocabulary of the structured reply format. Anything else in angle
// brackets is ordinary text.
const (
	tagMessage = "message"
	tagPre     = "pre"
	tagImage   = "image"
	tagAt      = "at"
	tagVoice   = "voice"
)

// ParseAdvancedResponse turns a structured AI reply into an ordered list of
// outgoing operations. The grammar is flat: <message> blocks at the top
// level, <pre> and <image> inside a block, <at>, <image> and <voice> inside
// a <pre>. A reply with no <message> block yields no operations.
func ParseAdvancedResponse(text string) []domain.Operation {
	var ops []domain.Operation
	rest := text
	for {
		body, after, ok := nextTag(rest, tagMessage)
		if !ok {
			return ops
		}
		ops = append(ops, parseBlock(body)...)
		rest = after
	}
}

// nextTag finds the next <name>…</name> pair and returns the interior and
// the remainder after the closing tag. The interior may span newlines; the
// first closing tag after the opener wins.
func nextTag(s, name string) (body, after string, ok bool) {
	open := "<" + name + ">"
	closing := "</" + name + ">"
	i := strings.Index(s, open)
	if i < 0 {
		return "", "", false
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return "", "", false
	}
	return rest[:j], rest[j+len(closing):], true
}

// parseBlock walks one <message> interior. Bare text and images accumulate
// in a segment buffer; every <pre> flushes the buffer first so that it
// always starts its own message.
func parseBlock(body string) []domain.Operation {
	var ops []domain.Operation
	var buf []domain.Segment

	flush := func() {
		if len(buf) > 0 {
			ops = append(ops, domain.NewSendMessage(buf))
			buf = nil
		}
	}
	text := func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			buf = append(buf, domain.TextSegment(t))
		}
	}

	rest := body
	for {
		kind, before, inner, after := nextOf(rest, tagPre, tagImage)
		if kind == "" {
			text(rest)
			break
		}
		text(before)
		switch kind {
		case tagImage:
			if inner != "" {
				buf = append(buf, domain.ImageSegment(inner))
			}
		case tagPre:
			flush()
			ops = append(ops, parsePre(inner)...)
		}
		rest = after
	}
	flush()
	return ops
}

// parsePre expands one <pre> interior. Without <voice> tags the whole
// interior becomes a single message; with them, text groups and voice
// operations alternate in document order.
func parsePre(body string) []domain.Operation {
	var ops []domain.Operation
	var group []domain.Segment

	flush := func() {
		if len(group) > 0 {
			ops = append(ops, domain.NewSendMessage(group))
			group = nil
		}
	}

	rest := strings.TrimSpace(body)
	for {
		inner, after, ok := nextTag(rest, tagVoice)
		if !ok {
			group = append(group, parseInline(rest)...)
			break
		}
		i := strings.Index(rest, "<"+tagVoice+">")
		group = append(group, parseInline(rest[:i])...)
		flush()
		if t := strings.TrimSpace(inner); t != "" {
			ops = append(ops, domain.NewSendVoice(t))
		}
		rest = after
	}
	flush()
	return ops
}

// parseInline scans text interleaved with <at> and <image> tags and emits
// segments in document order. Text between tags is kept as written apart
// from outer whitespace.
func parseInline(s string) []domain.Segment {
	var segs []domain.Segment
	rest := s
	for {
		kind, before, inner, after := nextOf(rest, tagAt, tagImage)
		if kind == "" {
			if t := strings.TrimSpace(rest); t != "" {
				segs = append(segs, domain.TextSegment(t))
			}
			return segs
		}
		if t := strings.TrimSpace(before); t != "" {
			segs = append(segs, domain.TextSegment(t))
		}
		switch kind {
		case tagAt:
			if inner != "" {
				segs = append(segs, domain.MentionSegment(inner))
			}
		case tagImage:
			if inner != "" {
				segs = append(segs, domain.ImageSegment(inner))
			}
		}
		rest = after
	}
}

// nextOf locates whichever of the two tags opens first and has a matching
// close. Returns the winning tag name, the text before it, its interior and
// the remainder; kind is empty when neither tag occurs.
func nextOf(s, a, b string) (kind, before, inner, after string) {
	ia := openIndex(s, a)
	ib := openIndex(s, b)
	switch {
	case ia < 0 && ib < 0:
		return "", "", "", ""
	case ib < 0, ia >= 0 && ia < ib:
		kind = a
	default:
		kind = b
	}
	i := openIndex(s, kind)
	body, rest, _ := nextTag(s[i:], kind)
	return kind, s[:i], body, rest
}

// openIndex returns the position of <name> only when a matching close
// follows; an unterminated opener is treated as plain text.
func openIndex(s, name string) int {
	i := strings.Index(s, "<"+name+">")
	if i < 0 {
		return -1
	}
	if !strings.Contains(s[i:], "</"+name+">") {
		return -1
	}
	return i
}
