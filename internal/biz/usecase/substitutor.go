package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/repo"
)

// emptyHistoryMarker is rendered when a history token asks for zero items,
// so the model sees an explicit marker instead of a silent gap.
const emptyHistoryMarker = "(0 items)"

var (
	tokenPattern = regexp.MustCompile(`\{\{([^{}]+?)\}\}`)
	rollPattern  = regexp.MustCompile(`^(\d+)d(\d+)$`)
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "星期日",
	time.Monday:    "星期一",
	time.Tuesday:   "星期二",
	time.Wednesday: "星期三",
	time.Thursday:  "星期四",
	time.Friday:    "星期五",
	time.Saturday:  "星期六",
}

// Substitutor expands {{name}} / {{name::arg}} tokens against a
// VariableContext and the history/variable stores.
type Substitutor struct {
	history repo.HistoryRepo
	vars    repo.VariableRepo

	// rollInt draws one uniform integer in [1, n]; injectable for tests.
	rollInt func(n int) int
}

// NewSubstitutor creates a substitutor backed by the given stores
func NewSubstitutor(history repo.HistoryRepo, vars repo.VariableRepo) *Substitutor {
	return &Substitutor{
		history: history,
		vars:    vars,
		rollInt: func(n int) int { return rand.Intn(n) + 1 },
	}
}

// Substitute expands all tokens in template, left to right, non-nested.
// Every token is resolved concurrently and the results are joined back in
// token order. Unknown names resolve to the empty string except user_input,
// which passes through unresolved for the preset expander. A failed
// resolver is isolated to its token and rendered as an inline error marker.
func (s *Substitutor) Substitute(ctx context.Context, template string, vc *domain.VariableContext, limits domain.HistoryLimits) string {
	matches := tokenPattern.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template
	}

	results := make([]string, len(matches))
	var wg sync.WaitGroup
	for i, m := range matches {
		token := template[m[2]:m[3]]
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			results[i] = s.resolveToken(ctx, token, vc, limits)
		}(i, token)
	}
	wg.Wait()

	var sb strings.Builder
	last := 0
	for i, m := range matches {
		sb.WriteString(template[last:m[0]])
		sb.WriteString(results[i])
		last = m[1]
	}
	sb.WriteString(template[last:])
	return sb.String()
}

func (s *Substitutor) resolveToken(ctx context.Context, token string, vc *domain.VariableContext, limits domain.HistoryLimits) string {
	parts := strings.Split(token, "::")
	name := parts[0]

	// roll NdM carries its argument after a space, not a :: separator
	if rest, ok := strings.CutPrefix(name, "roll "); ok && len(parts) == 1 {
		return s.roll(rest)
	}

	switch name {
	case "user_input":
		// resolution deferred to the preset expander; arguments are
		// meaningless here, so the token is normalized to its bare form
		return userInputToken

	case "chat_history":
		n := argCount(parts, limits.ChatHistory)
		out, err := s.renderHistory(ctx, vc.ContextKey(), n, s.history.GetRecentSummaries)
		if err != nil {
			return errorMarker(name)
		}
		return out

	case "message_history":
		n := argCount(parts, limits.MessageHistory)
		out, err := s.renderHistory(ctx, vc.ContextKey(), n, s.history.GetRecentRaw)
		if err != nil {
			return errorMarker(name)
		}
		return out

	case "message_last":
		rows, err := s.history.GetRecentRaw(ctx, vc.ContextKey(), 1)
		if err != nil {
			return errorMarker(name)
		}
		if len(rows) == 0 {
			return ""
		}
		return rows[0].FormatLine()

	case "random":
		options := parts[1:]
		if len(options) == 0 {
			return ""
		}
		return options[s.rollInt(len(options))-1]

	case "getvar":
		if len(parts) < 2 {
			return ""
		}
		out, err := s.getVar(ctx, parts[1], vc)
		if err != nil {
			return errorMarker(name)
		}
		return out

	case "getglobalvar":
		if len(parts) < 2 {
			return ""
		}
		out, err := s.vars.GetGlobal(ctx, parts[1])
		if err != nil {
			return errorMarker(name)
		}
		return out

	case "setvar":
		if len(parts) < 3 {
			return ""
		}
		if err := s.setVar(ctx, parts[1], strings.Join(parts[2:], "::"), vc); err != nil {
			return errorMarker(name)
		}
		return ""

	case "setglobalvar":
		if len(parts) < 3 {
			return ""
		}
		if err := s.vars.SetGlobal(ctx, parts[1], strings.Join(parts[2:], "::")); err != nil {
			return errorMarker(name)
		}
		return ""

	default:
		return s.scalar(name, vc)
	}
}

func (s *Substitutor) scalar(name string, vc *domain.VariableContext) string {
	switch name {
	case "date":
		return vc.Timestamp.Format("2006-01-02")
	case "time":
		return vc.Timestamp.Format("15:04:05")
	case "week":
		return weekdayNames[vc.Timestamp.Weekday()]
	case "bot_id":
		return vc.BotID
	case "bot_name":
		return vc.BotName
	case "user_id":
		return vc.SenderID
	case "user_name":
		return vc.UserName()
	case "user_nickname":
		return vc.SenderNickname
	case "group_id":
		return vc.GroupID
	case "group_name":
		return vc.GroupName
	case "replay_content":
		return vc.ReplyContent
	case "replay_is":
		return vc.IsReply.String()
	case "private_is":
		return vc.IsPrivate.String()
	case "group_is":
		return vc.IsGroup.String()
	default:
		return ""
	}
}

type historyFetch func(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error)

// renderHistory fetches the n most recent rows, drops the single most
// recent one when more than one row exists (it is usually the triggering
// message itself), reverses to chronological order and renders one line per
// row.
func (s *Substitutor) renderHistory(ctx context.Context, key domain.ContextKey, n int, fetch historyFetch) (string, error) {
	if n <= 0 {
		return emptyHistoryMarker, nil
	}
	rows, err := fetch(ctx, key, n)
	if err != nil {
		return "", err
	}
	rows = DropNewest(rows)
	lines := make([]string, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		lines = append(lines, rows[i].FormatLine())
	}
	return strings.Join(lines, "\n"), nil
}

// DropNewest removes the single most recent row from a newest-first slice
// when more than one row exists.
func DropNewest(rows []domain.HistoryRow) []domain.HistoryRow {
	if len(rows) > 1 {
		return rows[1:]
	}
	return rows
}

func (s *Substitutor) getVar(ctx context.Context, name string, vc *domain.VariableContext) (string, error) {
	def, err := s.vars.GetDefinition(ctx, name)
	if err != nil {
		return "", err
	}
	if def == nil {
		return "", nil
	}
	return s.vars.GetOrCreateInstance(ctx, def.ID, vc.ContextKey(), vc.SenderID)
}

func (s *Substitutor) setVar(ctx context.Context, name, value string, vc *domain.VariableContext) error {
	def, err := s.vars.GetDefinition(ctx, name)
	if err != nil {
		return err
	}
	if def == nil {
		return nil
	}
	return s.vars.Upsert(ctx, def.ID, vc.ContextKey(), vc.SenderID, value)
}

func (s *Substitutor) roll(spec string) string {
	m := rollPattern.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return ""
	}
	n, err1 := strconv.Atoi(m[1])
	sides, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || n <= 0 || sides <= 0 {
		return ""
	}
	sum := 0
	for i := 0; i < n; i++ {
		sum += s.rollInt(sides)
	}
	return strconv.Itoa(sum)
}

func argCount(parts []string, fallback int) int {
	if len(parts) < 2 {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func errorMarker(name string) string {
	return fmt.Sprintf("[error: %s]", name)
}
