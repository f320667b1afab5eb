package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// Trigger is one rule in the evaluation chain. Evaluate reports whether the
// inbound message should fire the configuration; an error counts as a
// non-match and the chain moves on.
type Trigger interface {
	Name() string
	Evaluate(ctx context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, vc *domain.VariableContext) (bool, error)
}

// TriggerEvaluator runs the ordered trigger chain for one (config, message)
// pair. Private chats bypass the chain entirely.
type TriggerEvaluator struct {
	triggers []Trigger
}

// NewTriggerEvaluator assembles the chain in its fixed precedence order:
// mention, reply, name, nickname, then the AI monitor, then the
// quantitative gate.
func NewTriggerEvaluator(history repo.HistoryRepo, gate *MonitorGate, counter *QuantitativeCounter) *TriggerEvaluator {
	return &TriggerEvaluator{
		triggers: []Trigger{
			&mentionTrigger{},
			&replyTrigger{history: history},
			&nameTrigger{},
			&nicknameTrigger{},
			&monitorTrigger{gate: gate},
			&quantitativeTrigger{gate: gate, counter: counter},
		},
	}
}

// Evaluate returns whether the message fires and the name of the trigger
// that matched.
func (e *TriggerEvaluator) Evaluate(ctx context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, vc *domain.VariableContext) (bool, string) {
	if msg.ChatType == domain.ChatTypePrivate {
		return true, "private"
	}
	for _, t := range e.triggers {
		matched, err := t.Evaluate(ctx, cfg, msg, vc)
		if err != nil {
			log.Printf("[Trigger] %s check failed for config %d: %v", t.Name(), cfg.ID, err)
			continue
		}
		if matched {
			return true, t.Name()
		}
	}
	return false, ""
}

type mentionTrigger struct{}

func (t *mentionTrigger) Name() string { return "mention" }

func (t *mentionTrigger) Evaluate(_ context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, vc *domain.VariableContext) (bool, error) {
	if !cfg.Triggers.OnMention {
		return false, nil
	}
	return msg.Mentions(vc.BotID), nil
}

type replyTrigger struct {
	history repo.HistoryRepo
}

func (t *replyTrigger) Name() string { return "reply" }

func (t *replyTrigger) Evaluate(ctx context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, _ *domain.VariableContext) (bool, error) {
	if !cfg.Triggers.OnReply || msg.ReplyToID == "" {
		return false, nil
	}
	row, err := t.history.FindByMessageID(ctx, msg.ReplyToID)
	if err != nil {
		return false, err
	}
	return row != nil && row.FromBot, nil
}

type nameTrigger struct{}

func (t *nameTrigger) Name() string { return "name" }

func (t *nameTrigger) Evaluate(_ context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, _ *domain.VariableContext) (bool, error) {
	if !cfg.Triggers.OnName || cfg.Persona.Name == "" {
		return false, nil
	}
	return matchText(msg, cfg.Persona.Name, cfg.Persona.FuzzyMatch), nil
}

type nicknameTrigger struct{}

func (t *nicknameTrigger) Name() string { return "nickname" }

func (t *nicknameTrigger) Evaluate(_ context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, _ *domain.VariableContext) (bool, error) {
	if !cfg.Triggers.OnNickname {
		return false, nil
	}
	for _, nick := range cfg.Persona.Nicknames {
		if nick != "" && matchText(msg, nick, cfg.Persona.FuzzyMatch) {
			return true, nil
		}
	}
	return false, nil
}

// matchText applies the per-config match policy: fuzzy is a substring search
// over the whole text, exact is a prefix match on the first text segment.
func matchText(msg *domain.InboundMessage, needle string, fuzzy bool) bool {
	if fuzzy {
		return strings.Contains(msg.PlainText(), needle)
	}
	return strings.HasPrefix(msg.FirstText(), needle)
}

type monitorTrigger struct {
	gate *MonitorGate
}

func (t *monitorTrigger) Name() string { return "monitor" }

func (t *monitorTrigger) Evaluate(ctx context.Context, cfg *domain.ResponderConfig, _ *domain.InboundMessage, vc *domain.VariableContext) (bool, error) {
	m := cfg.Triggers.Monitor
	if !m.Ready() {
		return false, nil
	}
	return t.gate.Evaluate(ctx, vc, m, MatchExact)
}

type quantitativeTrigger struct {
	gate    *MonitorGate
	counter *QuantitativeCounter
}

func (t *quantitativeTrigger) Name() string { return "quantitative" }

func (t *quantitativeTrigger) Evaluate(ctx context.Context, cfg *domain.ResponderConfig, msg *domain.InboundMessage, vc *domain.VariableContext) (bool, error) {
	if !cfg.Triggers.Quantitative || cfg.Triggers.Threshold <= 0 {
		return false, nil
	}
	// The counter window is consumed before the gate runs: a failed gate
	// still starts a fresh window.
	if !t.counter.ConsumeIfAtLeast(msg.ContextKey(), cfg.Triggers.Threshold) {
		return false, nil
	}
	m := cfg.Triggers.Monitor
	if !m.Ready() {
		log.Printf("[Trigger] config %d reached threshold %d but has no usable monitor settings", cfg.ID, cfg.Triggers.Threshold)
		return false, nil
	}
	return t.gate.Evaluate(ctx, vc, m, MatchFuzzyOrExact)
}
