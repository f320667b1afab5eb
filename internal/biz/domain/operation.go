package domain

// OperationKind discriminates outgoing operations
type OperationKind string

const (
	OpSendMessage OperationKind = "send_message"
	OpSendVoice   OperationKind = "send_voice"
)

// Operation is one unit of outgoing work produced by response parsing
type Operation struct {
	Kind      OperationKind
	Segments  []Segment // send_message shape
	VoiceText string    // send_voice shape
}

// NewSendMessage creates a send_message operation
func NewSendMessage(segments []Segment) Operation {
	return Operation{Kind: OpSendMessage, Segments: segments}
}

// NewSendVoice creates a send_voice operation
func NewSendVoice(text string) Operation {
	return Operation{Kind: OpSendVoice, VoiceText: text}
}

// PlainText flattens a send_message operation for history writing
func (o Operation) PlainText() string {
	if o.Kind == OpSendVoice {
		return o.VoiceText
	}
	return RenderSegments(o.Segments)
}
