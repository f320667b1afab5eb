package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

const monitorHistoryToken = "{{chat_history_for_sub_ai}}"

// defaultMonitorHistory is how many recent raw messages the gate shows the
// auxiliary model when the config leaves the count unset.
const defaultMonitorHistory = 10

// MatchPolicy decides how the auxiliary model's answer is compared against
// the configured keyword.
type MatchPolicy int

const (
	// MatchExact accepts only an answer equal to the keyword.
	MatchExact MatchPolicy = iota
	// MatchFuzzyOrExact honors the config's fuzzy flag: substring match
	// when set, exact equality otherwise.
	MatchFuzzyOrExact
)

// MonitorGate asks a small auxiliary model whether the current conversation
// warrants a response. The answer is compared to the configured keyword;
// a match opens the gate.
type MonitorGate struct {
	completion repo.CompletionRepo
	history    repo.HistoryRepo
	subst      *Substitutor
}

// NewMonitorGate wires the gate to its completion backend and history source.
func NewMonitorGate(completion repo.CompletionRepo, history repo.HistoryRepo, subst *Substitutor) *MonitorGate {
	return &MonitorGate{completion: completion, history: history, subst: subst}
}

// Evaluate runs the monitor prompt and reports whether the answer matched.
// Any transport or config failure closes the gate with an error; callers
// treat that as a non-match and move on.
func (g *MonitorGate) Evaluate(ctx context.Context, vc *domain.VariableContext, settings *domain.MonitorSettings, policy MatchPolicy) (bool, error) {
	if !settings.Ready() {
		return false, fmt.Errorf("monitor settings incomplete")
	}

	block, err := g.historyBlock(ctx, vc, settings)
	if err != nil {
		return false, fmt.Errorf("monitor history: %w", err)
	}

	systemPrompt := g.subst.Substitute(ctx, strings.ReplaceAll(settings.SystemPrompt, monitorHistoryToken, block), vc, domain.HistoryLimits{})
	userPrompt := g.subst.Substitute(ctx, strings.ReplaceAll(settings.UserPrompt, monitorHistoryToken, block), vc, domain.HistoryLimits{})

	var msgs []repo.ChatMessage
	if systemPrompt != "" {
		msgs = append(msgs, repo.TextMessage(domain.RoleSystem, systemPrompt))
	}
	msgs = append(msgs, repo.TextMessage(domain.RoleUser, userPrompt))

	reply, err := g.completion.Complete(ctx, msgs, settings.Completion)
	if err != nil {
		return false, fmt.Errorf("monitor completion: %w", err)
	}

	answer := strings.TrimSpace(reply)
	keyword := strings.TrimSpace(settings.Keyword)
	switch policy {
	case MatchFuzzyOrExact:
		if settings.FuzzyMatch {
			return strings.Contains(answer, keyword), nil
		}
		return answer == keyword, nil
	default:
		return answer == keyword, nil
	}
}

// historyBlock renders the recent raw messages for the auxiliary prompt,
// oldest first, one "[name]: content" line per message.
func (g *MonitorGate) historyBlock(ctx context.Context, vc *domain.VariableContext, settings *domain.MonitorSettings) (string, error) {
	n := settings.HistoryCount
	if n <= 0 {
		n = defaultMonitorHistory
	}
	rows, err := g.history.GetRecentRaw(ctx, vc.ContextKey(), n)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("[%s]: %s", rows[i].SenderName, rows[i].Content))
	}
	return strings.Join(lines, "\n"), nil
}
