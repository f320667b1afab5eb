package domain

import "time"

// TriState is a three-valued flag rendered as "true", "false" or empty
type TriState int

const (
	TriUnknown TriState = iota
	TriFalse
	TriTrue
)

func (t TriState) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return ""
	}
}

// TriOf converts a bool to a TriState
func TriOf(b bool) TriState {
	if b {
		return TriTrue
	}
	return TriFalse
}

// VariableContext is an immutable snapshot of contextual facts for one
// inbound message. Built once per message, never persisted.
type VariableContext struct {
	Timestamp       time.Time
	BotID           string
	BotName         string
	SenderID        string
	SenderNickname  string
	SenderGroupCard string
	GroupID         string
	GroupName       string
	ReplyContent    string // formatted text of the reply target, if any
	IsReply         TriState
	IsPrivate       TriState
	IsGroup         TriState
	RawText         string // plain text of the current message
	ChatType        ChatType
	ChatID          string
}

// ContextKey returns the chat context of the snapshot
func (vc *VariableContext) ContextKey() ContextKey {
	return ContextKey{ChatType: vc.ChatType, ChatID: vc.ChatID}
}

// UserName returns the group card when set, else the nickname
func (vc *VariableContext) UserName() string {
	if vc.SenderGroupCard != "" {
		return vc.SenderGroupCard
	}
	return vc.SenderNickname
}
