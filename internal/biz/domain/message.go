package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup   ChatType = "group"
	ChatTypePrivate ChatType = "private"
)

// ContextKey identifies one chat context (a private conversation or a group)
type ContextKey struct {
	ChatType ChatType
	ChatID   string
}

func (k ContextKey) String() string {
	return string(k.ChatType) + ":" + k.ChatID
}

// SegmentType represents the type of a message segment
type SegmentType string

const (
	SegmentText   SegmentType = "text"
	SegmentImage  SegmentType = "image"
	SegmentAt     SegmentType = "at"
	SegmentFace   SegmentType = "face"
	SegmentRecord SegmentType = "record"
	SegmentVideo  SegmentType = "video"
)

// Segment is one typed fragment of a message
type Segment struct {
	Type   SegmentType
	Text   string // text content
	URL    string // image/record/video resource
	Target string // at target user id
	FaceID string // face sticker id
}

// TextSegment creates a text segment
func TextSegment(text string) Segment {
	return Segment{Type: SegmentText, Text: text}
}

// ImageSegment creates an image segment
func ImageSegment(url string) Segment {
	return Segment{Type: SegmentImage, URL: url}
}

// MentionSegment creates an at segment
func MentionSegment(target string) Segment {
	return Segment{Type: SegmentAt, Target: target}
}

// Placeholder collapses a non-text segment to its bracketed text form
func (s Segment) Placeholder() string {
	switch s.Type {
	case SegmentText:
		return s.Text
	case SegmentImage:
		return "[图片]"
	case SegmentFace:
		return fmt.Sprintf("[表情:%s]", s.FaceID)
	case SegmentRecord:
		return "[语音]"
	case SegmentVideo:
		return "[视频]"
	case SegmentAt:
		return fmt.Sprintf("[@%s]", s.Target)
	default:
		return "[消息]"
	}
}

// RenderSegments flattens segments to plain text, collapsing non-text
// segments to bracketed placeholders
func RenderSegments(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Placeholder())
	}
	return sb.String()
}

// InboundMessage represents one message received from the gateway
type InboundMessage struct {
	MessageID       string
	ChatType        ChatType
	GroupID         string
	GroupName       string
	SenderID        string
	SenderNickname  string
	SenderGroupCard string
	Segments        []Segment
	ReplyToID       string // message id this message replies to, if any
	Timestamp       time.Time
}

// ContextKey returns the chat context of the message
func (m *InboundMessage) ContextKey() ContextKey {
	if m.ChatType == ChatTypeGroup {
		return ContextKey{ChatType: ChatTypeGroup, ChatID: m.GroupID}
	}
	return ContextKey{ChatType: ChatTypePrivate, ChatID: m.SenderID}
}

// PlainText concatenates all text segments
func (m *InboundMessage) PlainText() string {
	var sb strings.Builder
	for _, s := range m.Segments {
		if s.Type == SegmentText {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// FirstText returns the content of the first text segment
func (m *InboundMessage) FirstText() string {
	for _, s := range m.Segments {
		if s.Type == SegmentText {
			return s.Text
		}
	}
	return ""
}

// Mentions checks whether the message mentions the given user id
func (m *InboundMessage) Mentions(userID string) bool {
	if userID == "" {
		return false
	}
	for _, s := range m.Segments {
		if s.Type == SegmentAt && s.Target == userID {
			return true
		}
	}
	return false
}
