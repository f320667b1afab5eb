package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
	"github.com/lumokit/chat-responder/internal/biz/usecase"
)

// Pacing bounds for successive outgoing operations of one reply.
const (
	minReplyDelay = 300 * time.Millisecond
	maxReplyDelay = 10 * time.Second
)

// MessagePipeline drives one inbound message through history persistence,
// trigger evaluation and reply delivery. A single message fans out to the
// disguise and preset configurations concurrently; the two runs share the
// pre-built VariableContext but never observe each other's work.
type MessagePipeline struct {
	builder   *usecase.ContextBuilder
	evaluator *usecase.TriggerEvaluator
	expander  *usecase.Expander
	gate      *usecase.MonitorGate
	counter   *usecase.QuantitativeCounter

	resolver   repo.ConfigResolver
	completion repo.CompletionRepo
	history    repo.HistoryRepo
	dispatcher repo.Dispatcher

	botID   string
	botName string
}

// NewMessagePipeline wires the pipeline
func NewMessagePipeline(
	builder *usecase.ContextBuilder,
	evaluator *usecase.TriggerEvaluator,
	expander *usecase.Expander,
	gate *usecase.MonitorGate,
	counter *usecase.QuantitativeCounter,
	resolver repo.ConfigResolver,
	completion repo.CompletionRepo,
	history repo.HistoryRepo,
	dispatcher repo.Dispatcher,
	botID, botName string,
) *MessagePipeline {
	return &MessagePipeline{
		builder:    builder,
		evaluator:  evaluator,
		expander:   expander,
		gate:       gate,
		counter:    counter,
		resolver:   resolver,
		completion: completion,
		history:    history,
		dispatcher: dispatcher,
		botID:      botID,
		botName:    botName,
	}
}

// HandleMessage processes one inbound message. History rows and the
// quantitative counter are updated before any trigger runs, so a message
// counts toward thresholds even when nothing fires.
func (p *MessagePipeline) HandleMessage(ctx context.Context, msg *domain.InboundMessage) {
	key := msg.ContextKey()
	p.recordInbound(ctx, msg)
	p.counter.Increment(key)

	vc := p.builder.Build(ctx, msg)

	var wg sync.WaitGroup
	for _, kind := range []domain.ResponderKind{domain.KindDisguise, domain.KindPreset} {
		wg.Add(1)
		go func(kind domain.ResponderKind) {
			defer wg.Done()
			p.runKind(ctx, kind, key, msg, vc)
		}(kind)
	}
	wg.Wait()
}

func (p *MessagePipeline) recordInbound(ctx context.Context, msg *domain.InboundMessage) {
	row := &domain.HistoryRow{
		MessageID:  msg.MessageID,
		ChatType:   msg.ContextKey().ChatType,
		ChatID:     msg.ContextKey().ChatID,
		SenderID:   msg.SenderID,
		SenderName: senderName(msg),
		Content:    domain.RenderSegments(msg.Segments),
		FromBot:    false,
		CreatedAt:  msg.Timestamp,
	}
	if err := p.history.AppendRaw(ctx, row); err != nil {
		log.Printf("[Pipeline] append raw history: %v", err)
	}
	if err := p.history.AppendSummary(ctx, row); err != nil {
		log.Printf("[Pipeline] append summary history: %v", err)
	}
}

func (p *MessagePipeline) runKind(ctx context.Context, kind domain.ResponderKind, key domain.ContextKey, msg *domain.InboundMessage, vc *domain.VariableContext) {
	cfg, err := p.resolver.Resolve(ctx, kind, key)
	if err != nil {
		log.Printf("[Pipeline] resolve %s config for %s: %v", kind, key, err)
		return
	}
	if cfg == nil || !cfg.Enabled {
		return
	}

	fired, by := p.evaluator.Evaluate(ctx, cfg, msg, vc)
	if !fired {
		return
	}
	runID := uuid.NewString()[:8]
	log.Printf("[Pipeline] run %s: %s config %q fired via %s trigger in %s", runID, kind, cfg.Name, by, key)

	p.respond(ctx, runID, cfg, key, p.inputSegments(msg, cfg.Mode), vc)
}

// RunTimed executes one timed firing of a configuration: the monitor gate
// decides per active context, and a positive answer produces a reply built
// from the preset content with no user input.
func (p *MessagePipeline) RunTimed(ctx context.Context, cfg *domain.ResponderConfig) {
	contexts, err := p.resolver.ActiveContexts(ctx, cfg.Kind, cfg.ID)
	if err != nil {
		log.Printf("[Pipeline] active contexts for %s config %d: %v", cfg.Kind, cfg.ID, err)
		return
	}
	if len(contexts) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, key := range contexts {
		wg.Add(1)
		go func(key domain.ContextKey) {
			defer wg.Done()
			vc := p.builder.BuildSynthetic(key)
			matched, err := p.gate.Evaluate(ctx, vc, cfg.Triggers.Monitor, usecase.MatchExact)
			if err != nil {
				log.Printf("[Pipeline] timed gate for %s in %s: %v", cfg.Name, key, err)
				return
			}
			if !matched {
				return
			}
			runID := uuid.NewString()[:8]
			log.Printf("[Pipeline] run %s: timed firing of %q in %s", runID, cfg.Name, key)
			p.respond(ctx, runID, cfg, key, nil, vc)
		}(key)
	}
	wg.Wait()
}

// respond expands the preset, calls the completion service and delivers the
// reply. Completion failures and empty replies end the run silently.
func (p *MessagePipeline) respond(ctx context.Context, runID string, cfg *domain.ResponderConfig, key domain.ContextKey, userInput []domain.Segment, vc *domain.VariableContext) {
	turns := p.expander.Expand(ctx, cfg, userInput, vc)
	if len(turns) == 0 {
		log.Printf("[Pipeline] run %s: empty preset expansion, nothing to send", runID)
		return
	}

	reply, err := p.completion.Complete(ctx, turns, cfg.Completion)
	if err != nil {
		log.Printf("[Pipeline] run %s: completion failed: %v", runID, err)
		return
	}
	if reply == "" {
		log.Printf("[Pipeline] run %s: completion returned no content", runID)
		return
	}

	switch cfg.Mode {
	case domain.ModeAdvanced:
		p.deliverAdvanced(ctx, runID, cfg, key, reply)
	default:
		p.deliverStandard(ctx, runID, key, reply)
	}
}

func (p *MessagePipeline) deliverAdvanced(ctx context.Context, runID string, cfg *domain.ResponderConfig, key domain.ContextKey, reply string) {
	ops := usecase.ParseAdvancedResponse(reply)
	if len(ops) == 0 {
		log.Printf("[Pipeline] run %s: reply carried no message blocks", runID)
		return
	}

	delay := clampDelay(cfg.ReplyDelay)
	for i, op := range ops {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		var err error
		if op.Kind == domain.OpSendVoice {
			err = p.dispatcher.Synthesize(ctx, op.VoiceText, key)
		} else {
			err = p.dispatcher.Dispatch(ctx, key, op)
		}
		if err != nil {
			log.Printf("[Pipeline] run %s: dispatch operation %d: %v", runID, i, err)
			continue
		}
		p.recordOutbound(ctx, key, op.PlainText())
	}
	log.Printf("[Pipeline] run %s: delivered %d operations", runID, len(ops))
}

func (p *MessagePipeline) deliverStandard(ctx context.Context, runID string, key domain.ContextKey, reply string) {
	text := usecase.TransformMentions(reply, domain.ModeStandard, p.botID)
	if text == "" {
		return
	}
	if err := p.dispatcher.SendText(ctx, key, text); err != nil {
		log.Printf("[Pipeline] run %s: send text: %v", runID, err)
		return
	}
	p.recordOutbound(ctx, key, text)
	log.Printf("[Pipeline] run %s: delivered plain reply (%d chars)", runID, len(text))
}

func (p *MessagePipeline) recordOutbound(ctx context.Context, key domain.ContextKey, content string) {
	if content == "" {
		return
	}
	row := &domain.HistoryRow{
		MessageID:  uuid.NewString(),
		ChatType:   key.ChatType,
		ChatID:     key.ChatID,
		SenderID:   p.botID,
		SenderName: p.botName,
		Content:    content,
		FromBot:    true,
		CreatedAt:  time.Now(),
	}
	if err := p.history.AppendRaw(ctx, row); err != nil {
		log.Printf("[Pipeline] append bot raw history: %v", err)
	}
	if err := p.history.AppendSummary(ctx, row); err != nil {
		log.Printf("[Pipeline] append bot summary history: %v", err)
	}
}

// inputSegments converts the inbound message into the structured user input
// fed to the expander. Mention vocabulary is normalized per delivery mode;
// images pass through untouched.
func (p *MessagePipeline) inputSegments(msg *domain.InboundMessage, mode domain.ResponderMode) []domain.Segment {
	out := make([]domain.Segment, 0, len(msg.Segments))
	for _, s := range msg.Segments {
		switch s.Type {
		case domain.SegmentImage:
			out = append(out, s)
		case domain.SegmentText:
			out = append(out, domain.TextSegment(usecase.TransformMentions(s.Text, mode, p.botID)))
		default:
			if t := usecase.TransformMentions(s.Placeholder(), mode, p.botID); t != "" {
				out = append(out, domain.TextSegment(t))
			}
		}
	}
	return out
}

func senderName(msg *domain.InboundMessage) string {
	if msg.SenderGroupCard != "" {
		return msg.SenderGroupCard
	}
	if msg.SenderNickname != "" {
		return msg.SenderNickname
	}
	return msg.SenderID
}

func clampDelay(d time.Duration) time.Duration {
	if d < minReplyDelay {
		return minReplyDelay
	}
	if d > maxReplyDelay {
		return maxReplyDelay
	}
	return d
}
