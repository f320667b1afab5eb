package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

type fakeHistoryRepo struct {
	summaries []domain.HistoryRow // newest-first
	raw       []domain.HistoryRow // newest-first
	byMsgID   map[string]*domain.HistoryRow
	failFetch bool

	appendedRaw       []domain.HistoryRow
	appendedSummaries []domain.HistoryRow
}

func (f *fakeHistoryRepo) GetRecentSummaries(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error) {
	if f.failFetch {
		return nil, errors.New("store unavailable")
	}
	if limit > len(f.summaries) {
		limit = len(f.summaries)
	}
	return f.summaries[:limit], nil
}

func (f *fakeHistoryRepo) GetRecentRaw(ctx context.Context, key domain.ContextKey, limit int) ([]domain.HistoryRow, error) {
	if f.failFetch {
		return nil, errors.New("store unavailable")
	}
	if limit > len(f.raw) {
		limit = len(f.raw)
	}
	return f.raw[:limit], nil
}

func (f *fakeHistoryRepo) AppendSummary(ctx context.Context, row *domain.HistoryRow) error {
	f.appendedSummaries = append(f.appendedSummaries, *row)
	return nil
}

func (f *fakeHistoryRepo) AppendRaw(ctx context.Context, row *domain.HistoryRow) error {
	f.appendedRaw = append(f.appendedRaw, *row)
	return nil
}

func (f *fakeHistoryRepo) FindByMessageID(ctx context.Context, messageID string) (*domain.HistoryRow, error) {
	return f.byMsgID[messageID], nil
}

func (f *fakeHistoryRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeVariableRepo struct {
	defs      map[string]*domain.VariableDefinition
	instances map[string]string // defID/key/user -> value
	globals   map[string]string
}

func newFakeVariableRepo() *fakeVariableRepo {
	return &fakeVariableRepo{
		defs:      map[string]*domain.VariableDefinition{},
		instances: map[string]string{},
		globals:   map[string]string{},
	}
}

func instanceKey(defID int64, key domain.ContextKey, userID string) string {
	return fmt.Sprintf("%d/%s/%s", defID, key, userID)
}

func (f *fakeVariableRepo) GetDefinition(ctx context.Context, name string) (*domain.VariableDefinition, error) {
	return f.defs[name], nil
}

func (f *fakeVariableRepo) DefineVariable(ctx context.Context, name, defaultValue string) error {
	f.defs[name] = &domain.VariableDefinition{ID: int64(len(f.defs) + 1), Name: name, DefaultValue: defaultValue}
	return nil
}

func (f *fakeVariableRepo) GetOrCreateInstance(ctx context.Context, defID int64, key domain.ContextKey, userID string) (string, error) {
	k := instanceKey(defID, key, userID)
	if v, ok := f.instances[k]; ok {
		return v, nil
	}
	for _, def := range f.defs {
		if def.ID == defID {
			f.instances[k] = def.DefaultValue
			return def.DefaultValue, nil
		}
	}
	return "", nil
}

func (f *fakeVariableRepo) Upsert(ctx context.Context, defID int64, key domain.ContextKey, userID, value string) error {
	f.instances[instanceKey(defID, key, userID)] = value
	return nil
}

func (f *fakeVariableRepo) GetGlobal(ctx context.Context, name string) (string, error) {
	return f.globals[name], nil
}

func (f *fakeVariableRepo) SetGlobal(ctx context.Context, name, value string) error {
	f.globals[name] = value
	return nil
}

func testContext() *domain.VariableContext {
	return &domain.VariableContext{
		Timestamp:      time.Date(2024, 5, 6, 14, 30, 5, 0, time.UTC), // a Monday
		BotID:          "999",
		BotName:        "Momo",
		SenderID:       "42",
		SenderNickname: "alice",
		GroupID:        "g1",
		GroupName:      "dev chat",
		IsReply:        domain.TriFalse,
		IsPrivate:      domain.TriFalse,
		IsGroup:        domain.TriTrue,
		RawText:        "hello",
		ChatType:       domain.ChatTypeGroup,
		ChatID:         "g1",
	}
}

func historyRows(n int) []domain.HistoryRow {
	base := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	rows := make([]domain.HistoryRow, n) // newest-first
	for i := 0; i < n; i++ {
		rows[i] = domain.HistoryRow{
			SenderID:   fmt.Sprintf("u%d", n-i),
			SenderName: fmt.Sprintf("user%d", n-i),
			Content:    fmt.Sprintf("msg%d", n-i),
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return rows
}

func TestSubstituteScalars(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{}, newFakeVariableRepo())
	vc := testContext()
	limits := domain.HistoryLimits{}

	tests := []struct {
		template string
		want     string
	}{
		{"{{date}}", "2024-05-06"},
		{"{{time}}", "14:30:05"},
		{"{{week}}", "星期一"},
		{"{{bot_id}}", "999"},
		{"{{bot_name}}", "Momo"},
		{"{{user_id}}", "42"},
		{"{{user_name}}", "alice"},
		{"{{user_nickname}}", "alice"},
		{"{{group_id}}", "g1"},
		{"{{group_name}}", "dev chat"},
		{"{{replay_is}}", "false"},
		{"{{private_is}}", "false"},
		{"{{group_is}}", "true"},
		{"{{no_such_token}}", ""},
		{"{{user_input}}", "{{user_input}}"},
		{"{{user_input::raw}}", "{{user_input}}"},
		{"a {{bot_name}} b {{user_id}} c", "a Momo b 42 c"},
	}
	for _, tt := range tests {
		got := s.Substitute(context.Background(), tt.template, vc, limits)
		if got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestSubstituteDeterministic(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{}, newFakeVariableRepo())
	vc := testContext()
	template := "{{date}} {{time}} {{week}} {{user_name}}"

	first := s.Substitute(context.Background(), template, vc, domain.HistoryLimits{})
	for i := 0; i < 5; i++ {
		if got := s.Substitute(context.Background(), template, vc, domain.HistoryLimits{}); got != first {
			t.Fatalf("call %d produced %q, want %q", i, got, first)
		}
	}
}

func TestSubstituteUserNamePrefersGroupCard(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{}, newFakeVariableRepo())
	vc := testContext()
	vc.SenderGroupCard = "Alice (ops)"

	got := s.Substitute(context.Background(), "{{user_name}}/{{user_nickname}}", vc, domain.HistoryLimits{})
	if got != "Alice (ops)/alice" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteHistoryZeroItems(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{summaries: historyRows(3), raw: historyRows(3)}, newFakeVariableRepo())
	vc := testContext()

	for _, template := range []string{"{{chat_history::0}}", "{{message_history::0}}"} {
		got := s.Substitute(context.Background(), template, vc, domain.HistoryLimits{ChatHistory: 5, MessageHistory: 5})
		if got != "(0 items)" {
			t.Errorf("Substitute(%q) = %q, want explicit zero marker", template, got)
		}
	}
}

func TestSubstituteHistoryDropsNewestAndReverses(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{summaries: historyRows(3)}, newFakeVariableRepo())
	vc := testContext()

	got := s.Substitute(context.Background(), "{{chat_history::3}}", vc, domain.HistoryLimits{})

	// newest row (msg3) excluded, remainder oldest-first
	want := "(user_id: u1, user_name: user1, date: 2024-05-06, time: 11:58:00): msg1\n" +
		"(user_id: u2, user_name: user2, date: 2024-05-06, time: 11:59:00): msg2"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSubstituteHistorySingleRowKept(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{summaries: historyRows(1)}, newFakeVariableRepo())
	vc := testContext()

	got := s.Substitute(context.Background(), "{{chat_history::5}}", vc, domain.HistoryLimits{})
	if got == "" {
		t.Fatal("expected the single row to be kept")
	}
}

func TestSubstituteMessageLast(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{raw: historyRows(2)}, newFakeVariableRepo())
	vc := testContext()

	got := s.Substitute(context.Background(), "{{message_last}}", vc, domain.HistoryLimits{})
	want := "(user_id: u2, user_name: user2, date: 2024-05-06, time: 12:00:00): msg2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubstituteRoll(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{}, newFakeVariableRepo())
	s.rollInt = func(n int) int { return n } // always max
	vc := testContext()

	tests := []struct {
		template string
		want     string
	}{
		{"{{roll 2d6}}", "12"},
		{"{{roll 1d20}}", "20"},
		{"{{roll 0d6}}", ""},
		{"{{roll 2d0}}", ""},
		{"{{roll banana}}", ""},
	}
	for _, tt := range tests {
		got := s.Substitute(context.Background(), tt.template, vc, domain.HistoryLimits{})
		if got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestSubstituteRandom(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{}, newFakeVariableRepo())
	s.rollInt = func(n int) int { return 2 }
	vc := testContext()

	got := s.Substitute(context.Background(), "{{random::a::b::c}}", vc, domain.HistoryLimits{})
	if got != "b" {
		t.Errorf("got %q, want b", got)
	}

	if got := s.Substitute(context.Background(), "{{random}}", vc, domain.HistoryLimits{}); got != "" {
		t.Errorf("random with no options = %q, want empty", got)
	}
}

func TestSubstituteVariables(t *testing.T) {
	vars := newFakeVariableRepo()
	vars.defs["mood"] = &domain.VariableDefinition{ID: 1, Name: "mood", DefaultValue: "neutral"}
	vars.globals["season"] = "spring"
	s := NewSubstitutor(&fakeHistoryRepo{}, vars)
	vc := testContext()
	limits := domain.HistoryLimits{}

	// lazy materialization at the definition default
	if got := s.Substitute(context.Background(), "{{getvar::mood}}", vc, limits); got != "neutral" {
		t.Errorf("getvar = %q, want neutral", got)
	}
	// setvar renders empty and persists
	if got := s.Substitute(context.Background(), "{{setvar::mood::happy}}", vc, limits); got != "" {
		t.Errorf("setvar rendered %q, want empty", got)
	}
	if got := s.Substitute(context.Background(), "{{getvar::mood}}", vc, limits); got != "happy" {
		t.Errorf("getvar after setvar = %q, want happy", got)
	}
	// globals
	if got := s.Substitute(context.Background(), "{{getglobalvar::season}}", vc, limits); got != "spring" {
		t.Errorf("getglobalvar = %q, want spring", got)
	}
	if got := s.Substitute(context.Background(), "{{setglobalvar::season::summer}}", vc, limits); got != "" {
		t.Errorf("setglobalvar rendered %q, want empty", got)
	}
	if vars.globals["season"] != "summer" {
		t.Errorf("global not updated: %q", vars.globals["season"])
	}
	// undefined variable reads as empty
	if got := s.Substitute(context.Background(), "{{getvar::nope}}", vc, limits); got != "" {
		t.Errorf("getvar for unknown definition = %q, want empty", got)
	}
}

func TestSubstituteTokenErrorIsolated(t *testing.T) {
	s := NewSubstitutor(&fakeHistoryRepo{failFetch: true}, newFakeVariableRepo())
	vc := testContext()

	got := s.Substitute(context.Background(), "{{bot_name}} / {{chat_history::3}} / {{user_id}}", vc, domain.HistoryLimits{})
	want := "Momo / [error: chat_history] / 42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
